// Command fmactl manages file manager actions and menus.
package main

import "github.com/mesh-intelligence/fileractions/internal/cli"

func main() {
	cli.Execute()
}
