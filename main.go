package main

import (
	"fmt"
	"os"

	"github.com/ralphcodes/ralph/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if code, ok := cmd.AsExitCode(err); ok {
			os.Exit(code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
