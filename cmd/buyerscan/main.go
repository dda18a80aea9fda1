package main

import "github.com/buyerscan/buyerscan/internal/cli"

func main() {
	cli.Execute()
}
