package main

import (
	"github.com/slipwaylabs/slipway/cli"
)

func main() {
	cli.Execute()
}
