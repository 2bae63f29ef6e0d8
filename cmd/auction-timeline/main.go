package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/cloudx-io/auctiontimeline/cli"
)

func main() {
	// A missing .env is fine; values may come from the environment or the config file
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
