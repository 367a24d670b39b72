package main

import (
	"context"
	"log"

	"github.com/Archer-177/HighCostAtWork/cmd"

	"github.com/joho/godotenv"
)

func main() {
	// .env never overrides variables already set in the environment
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, falling back to system environment variables.")
	}

	cmd.Execute(context.Background())
}
