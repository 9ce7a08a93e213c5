package main

import "brokerbench/cmd"

func main() {
	cmd.Execute()
}
