package main

import (
	"os"

	"github.com/dshills/diffgate/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
