package main

import "repocite/cmd"

func main() {
	cmd.Execute()
}
