package main

import (
	"os"

	"github.com/lysyi3m/race-comb/app/cli"
)

func main() {
	os.Exit(cli.Execute())
}
