package main

import "github.com/nextlevelbuilder/codebot/cmd"

func main() {
	cmd.Execute()
}
