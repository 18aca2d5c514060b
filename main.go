package main

import "github.com/fwpull/fwpull/cmd"

func main() {
	cmd.Execute()
}
