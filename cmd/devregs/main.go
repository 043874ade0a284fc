// Package main implements the devregs command line tool for displaying and
// modifying device registers at runtime.
package main

import "github.com/boundarydevices/devregs/cmd/devregs/cmd"

func main() {
	cmd.Execute()
}
