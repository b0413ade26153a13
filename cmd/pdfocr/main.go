package main

import (
	"fmt"
	"os"

	"github.com/adverant/nexus/pdfocr/cmd/pdfocr/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
