package main

import "subgen/cmd"

func main() {
	cmd.Execute()
}
