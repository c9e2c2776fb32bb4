package main

import "github.com/kfreiman/docconv/cmd"

func main() {
	cmd.Execute()
}
