package main

import "thoreinstein.com/jora/cmd"

func main() {
	cmd.Execute()
}
