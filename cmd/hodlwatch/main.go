package main

import (
	"hodlwatch/internal/cli"
)

func main() {
	cli.Execute()
}
