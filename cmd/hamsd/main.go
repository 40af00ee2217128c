package main

import (
	"fmt"
	"os"

	"github.com/PolecatWorks/hams-sub000/cmd/hamsd/app"
)

func main() {
	if err := app.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
