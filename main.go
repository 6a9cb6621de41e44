package main

import "github.com/agentic-research/kgtab/cmd"

func main() {
	cmd.Execute()
}
