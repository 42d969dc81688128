package main

import "github.com/weaveget/weaveget/cmd"

func main() {
	cmd.Execute()
}
