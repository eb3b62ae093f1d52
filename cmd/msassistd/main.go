package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/msassist/internal/cli"
	"github.com/cloo-solutions/msassist/internal/cli/admin"
)

func main() {
	rootCmd := admin.NewRootCmd()

	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"serve"}
	}

	if handled, err := cli.HandleHelpJSON(rootCmd, args, os.Stdout); handled {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
