package main

import "tirecheck/cmd"

func main() {
	cmd.Execute()
}
