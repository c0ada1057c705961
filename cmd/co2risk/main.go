package main

import "github.com/okian/co2risk/internal/cli"

func main() {
	cli.Execute()
}
