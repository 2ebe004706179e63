// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/avocado-linux/avocadoctl/cmd/avocadoctl"

func main() {
	cmd.Execute()
}
