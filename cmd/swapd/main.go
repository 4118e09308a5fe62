package main

import "github.com/LeJamon/goSwapd/internal/cli"

func main() {
	cli.Execute()
}
