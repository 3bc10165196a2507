package main

import "github.com/GMOnyx/Commandlessapp-sub000/cmd"

func main() {
	cmd.Execute()
}
