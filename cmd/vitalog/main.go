package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/aweiler/vitalog/internal/cli"
)

func main() {
	// Optional .env in the working directory; absence is the normal case.
	_ = godotenv.Load()

	os.Exit(cli.Execute())
}
