package main

import "github.com/sortbench/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
