// SPDX-License-Identifier: MPL-2.0

package fragment

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/stuvusIT/ansible-config-repo-scripts/internal/issue"
	"github.com/stuvusIT/ansible-config-repo-scripts/internal/merge"
	"github.com/stuvusIT/ansible-config-repo-scripts/internal/value"
)

// fileNamePattern matches fragment file names. Upper-case names and names with
// other characters are ignored, the same way Ansible ignores them.
var fileNamePattern = regexp.MustCompile(`^[a-z0-9_.-]*\.(yml|yaml|toml|json)$`)

type (
	// Options locates the fragment sources inside a repository.
	Options struct {
		// Root is the repository root; relative paths below are joined to it.
		Root string
		// GroupsDir holds group fragments ("groups").
		GroupsDir string
		// HostsDir holds host fragments ("hosts").
		HostsDir string
		// UserFile is the optional user override fragment ("user.yml").
		UserFile string
		// MaxFileSize caps a single file; zero means DefaultMaxFileSize.
		MaxFileSize int64
	}

	// FSLoader reads fragments from a filesystem tree.
	FSLoader struct {
		fs   afero.Fs
		opts Options
	}

	// entry is one logical fragment name with the files that make it up.
	entry struct {
		name  string
		files []string
	}
)

// DefaultOptions returns the conventional repository layout rooted at root.
func DefaultOptions(root string) Options {
	return Options{
		Root:        root,
		GroupsDir:   "groups",
		HostsDir:    "hosts",
		UserFile:    "user.yml",
		MaxFileSize: DefaultMaxFileSize,
	}
}

// NewFSLoader creates a loader reading from fsys.
func NewFSLoader(fsys afero.Fs, opts Options) *FSLoader {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	return &FSLoader{fs: fsys, opts: opts}
}

// Load implements Loader. It fails only when the repository root is missing;
// every per-file problem lands in Set.Diagnostics.
func (l *FSLoader) Load(ctx context.Context) (*Set, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load fragments canceled: %w", err)
	}

	if ok, err := afero.DirExists(l.fs, l.opts.Root); err != nil || !ok {
		cause := err
		if cause == nil {
			cause = fs.ErrNotExist
		}
		return nil, issue.NewErrorContext().
			WithOperation("load configuration repository").
			WithResource(l.opts.Root).
			WithSuggestion("Run the command from the repository root or pass --root").
			WithSuggestion("Check paths.groups and paths.hosts in inventory.cue").
			Wrap(cause).
			BuildError()
	}

	set := &Set{Overrides: value.Map{}}

	groups, diags := l.loadScope(ctx, l.opts.GroupsDir, ScopeGroup)
	set.Groups = groups
	set.Diagnostics = append(set.Diagnostics, diags...)

	hosts, diags := l.loadScope(ctx, l.opts.HostsDir, ScopeHost)
	set.Hosts = hosts
	set.Diagnostics = append(set.Diagnostics, diags...)

	if l.opts.UserFile != "" {
		path := l.path(l.opts.UserFile)
		exists, _ := afero.Exists(l.fs, path)
		if exists {
			data, err := l.readFile(path)
			if err != nil {
				set.Diagnostics = append(set.Diagnostics, err)
			} else {
				set.Overrides = data
			}
		} else {
			slog.Debug("no user override file", "path", path)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load fragments canceled: %w", err)
	}
	return set, nil
}

func (l *FSLoader) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(l.opts.Root, p)
}

// loadScope reads every logical fragment of one scope directory.
func (l *FSLoader) loadScope(ctx context.Context, dir string, scope Scope) ([]Fragment, []error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := l.list(l.path(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("fragment directory does not exist", "scope", scope.String(), "dir", l.path(dir))
			return nil, nil
		}
		return nil, []error{&FileError{File: l.path(dir), Err: err}}
	}

	var (
		out   []Fragment
		diags []error
	)
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		data := value.Map{}
		var sources []string
		for _, file := range e.files {
			m, err := l.readFile(file)
			if err != nil {
				diags = append(diags, err)
				continue
			}
			// Files of one logical fragment are co-authored; later ones refine.
			data, _ = merge.Maps(data, m, merge.Overwrite)
			sources = append(sources, file)
		}
		if len(sources) == 0 {
			continue
		}
		f := Fragment{Scope: scope, Name: e.name, Sources: sources, Data: data}
		if scope == ScopeGroup && e.name == GlobalName {
			f.Scope = ScopeGlobal
		}
		out = append(out, f)
	}
	return out, diags
}

// list groups the files of dir by logical fragment name: plain files by stem,
// sub-directories by directory name (recursively). A file and a directory
// with the same name form one fragment, the file first.
func (l *FSLoader) list(dir string) ([]entry, error) {
	infos, err := afero.ReadDir(l.fs, dir)
	if err != nil {
		return nil, err
	}

	byName := map[string]*entry{}
	var order []string
	add := func(name string, files ...string) {
		e, ok := byName[name]
		if !ok {
			e = &entry{name: name}
			byName[name] = e
			order = append(order, name)
		}
		e.files = append(e.files, files...)
	}

	// Files before directories so that "web.yml" precedes "web/".
	for _, info := range infos {
		if info.IsDir() || !fileNamePattern.MatchString(info.Name()) {
			continue
		}
		name := strings.TrimSuffix(info.Name(), filepath.Ext(info.Name()))
		add(name, filepath.Join(dir, info.Name()))
	}
	for _, info := range infos {
		if !info.IsDir() {
			continue
		}
		files, err := l.walk(filepath.Join(dir, info.Name()))
		if err != nil {
			return nil, err
		}
		add(info.Name(), files...)
	}

	sort.Strings(order)
	out := make([]entry, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out, nil
}

func (l *FSLoader) walk(dir string) ([]string, error) {
	var files []string
	err := afero.Walk(l.fs, dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && fileNamePattern.MatchString(info.Name()) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (l *FSLoader) readFile(path string) (value.Map, error) {
	info, err := l.fs.Stat(path)
	if err != nil {
		return nil, &FileError{File: path, Err: err}
	}
	if info.Size() > l.opts.MaxFileSize {
		return nil, &FileError{File: path, Err: &value.StructuralError{
			Reason: fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), l.opts.MaxFileSize),
		}}
	}
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, &FileError{File: path, Err: err}
	}
	m, err := Decode(path, data)
	if err != nil {
		return nil, &FileError{File: path, Err: err}
	}
	return m, nil
}
