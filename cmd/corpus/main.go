package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/tessera-labs/corpus-cli/internal/adapters/driving/cli"
)

func main() {
	// Optional .env for provider API keys; absence is fine.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
