// Command memtool displays and modifies memory, regular files and MDIO PHY
// registers. It may also be invoked through links named md or mw.
package main

import (
	"os"

	"memtool/internal/commands"
)

func main() {
	os.Exit(commands.Main(os.Args, os.Stdout, os.Stderr))
}
