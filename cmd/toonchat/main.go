package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file - try a couple of standard locations
	for _, p := range []string{".env", "../.env"} {
		if err := godotenv.Load(p); err == nil {
			fmt.Fprintf(os.Stderr, "Loaded .env from: %s\n", p)
			break
		}
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	Execute()
}
