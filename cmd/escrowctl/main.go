package main

import "github.com/srgjo27/escrow_booking/internal/cli"

func main() {
	cli.Execute()
}
