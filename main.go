// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/stuvusIT/ansible-config-repo-scripts/cmd/inventory"

func main() {
	cmd.Execute()
}
