package main

import "github.com/mj1618/quadview/cmd"

func main() {
	cmd.Execute()
}
