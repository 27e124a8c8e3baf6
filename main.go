package main

import "github.com/tinycask/tinycask/cmd"

func main() {
	cmd.Execute()
}
