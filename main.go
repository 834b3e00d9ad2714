package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"sol-swap/cmd"
)

func main() {
	// .env is optional; real environment variables take precedence
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
