package main

import "github.com/atikulmunna/loomwatch/internal/cmd"

func main() {
	cmd.Execute()
}
