package main

import "github.com/jsphweid/drumdex/cmd"

func main() {
	cmd.Execute()
}
