package main

import "vendcore/cmd/vendcore/commands"

func main() {
	commands.Execute()
}
