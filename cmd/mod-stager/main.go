package main

import "github.com/ps2jpmod/launcher/cmd/mod-stager/cmd"

func main() {
	cmd.Execute()
}
