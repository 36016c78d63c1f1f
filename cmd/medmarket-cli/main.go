package main

import "medmarket/cli/cmd"

func main() {
	cmd.Execute()
}
