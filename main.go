package main

import (
	"embed"
	"fmt"
	"os"
)

//go:embed assets/migrations/sqlite/*.sql assets/seed/*.yaml
var assetsFS embed.FS

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
