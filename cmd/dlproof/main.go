package main

import (
	"fmt"
	"os"

	dlproof "github.com/drand/dlproof/internal/dlproof-cli"
)

func main() {
	app := dlproof.CLI()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}
