package main

import "github.com/geodyn/birkhoff/cmd"

func main() {
	cmd.Execute()
}
