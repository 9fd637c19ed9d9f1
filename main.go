package main

import (
	"os"

	"github.com/ldayton/TotalRecall/internal/cli"
)

func main() {
	c := cli.NewCLI()
	exitCode := c.Run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	os.Exit(exitCode)
}
