package main

import "github.com/tbc399/command-line-trader/internal/cli"

func main() {
	cli.Execute()
}
