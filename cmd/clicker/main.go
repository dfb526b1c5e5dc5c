package main

import "github.com/mcoot/clickergame/internal/cli"

func main() {
	cli.Execute()
}
