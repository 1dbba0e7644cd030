package main

import "github.com/emrgen/refgraph/cmd"

func main() {
	cmd.Execute()
}
