package main

import "github.com/oddsintel/oddsintel/cmd"

func main() {
	cmd.Execute()
}
