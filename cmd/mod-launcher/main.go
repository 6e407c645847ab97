package main

import "github.com/ps2jpmod/launcher/cmd/mod-launcher/cmd"

func main() {
	cmd.Execute()
}
