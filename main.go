package main

import "simpus/commands"

func main() {
	commands.Execute()
}
