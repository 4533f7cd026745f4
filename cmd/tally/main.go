package main

import (
	"log"

	"github.com/joho/godotenv"

	"tally/cmd/internal/app"
)

func main() {
	// A missing .env is fine; production configures the environment directly.
	_ = godotenv.Load()

	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
