package main

import (
	"os"

	"github.com/compozy/basic-cleaning/cli"
)

func main() {
	os.Exit(cli.Execute())
}
