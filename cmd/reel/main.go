package main

import (
	"os"

	"github.com/tessro/reel/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
