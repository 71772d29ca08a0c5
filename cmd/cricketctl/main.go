package main

import "github.com/mcoot/crickettalent/internal/cli"

func main() {
	cli.Execute()
}
