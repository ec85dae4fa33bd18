// ./main.go
package main

import (
	"github.com/hollowpoint9/retrace-cli/cmd"
)

func main() {
	// Command-line parsing, configuration and execution all live in cmd.
	cmd.Execute()
}
