package main

import "tfvm/internal/cli"

func main() {
	cli.Execute()
}
