package main

import (
	"os"

	"github.com/joho/godotenv"

	overlapcmder "github.com/papercomputeco/overlap/cmd/overlap"
)

func main() {
	// a missing .env is fine; real environment variables still apply
	_ = godotenv.Load()

	cmd := overlapcmder.NewOverlapCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
