package main

import (
	"os"

	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
