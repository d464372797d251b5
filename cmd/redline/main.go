package main

import "github.com/redline-tools/redline/cmd/redline/cmd"

func main() {
	cmd.Execute()
}
