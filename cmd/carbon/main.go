package main

import (
	"os"

	"github.com/baaaaaaaka/carbon/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
