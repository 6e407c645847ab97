package main

import "github.com/ps2jpmod/launcher/cmd/mod-updater/cmd"

func main() {
	cmd.Execute()
}
