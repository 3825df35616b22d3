package main

import (
	"github.com/somners/Spout/cmd"
)

func main() {
	cmd.Execute()
}
