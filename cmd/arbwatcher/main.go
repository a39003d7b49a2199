package main

import "forex-arb/internal/cli"

func main() {
	cli.Execute()
}
