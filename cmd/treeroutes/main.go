package main

import "github.com/peter-mxtoolbox/treeroutes/internal/cli"

// main is the entry point of the application.
func main() {
	cli.Execute()
}
