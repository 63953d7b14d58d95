// Command dfc is the dataflow compiler CLI.
package main

import "github.com/dataflow-compiler/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
