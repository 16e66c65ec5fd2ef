package main

import "github.com/rustyeddy/papertrade/cli"

func main() {
	cli.Execute()
}
