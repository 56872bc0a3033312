package main

import "artycleaner/internal/cli"

func main() {
	cli.Execute()
}
