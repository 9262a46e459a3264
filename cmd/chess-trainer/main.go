package main

import "github.com/park285/Cheese-chess-trainer/internal/cli"

func main() {
	cli.Execute()
}
