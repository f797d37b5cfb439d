package main

import (
	"os"

	"github.com/wavedash-gg/wvdsh/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
