// Command settingsctl inspects and transfers site settings from the command line.
//
// Configuration comes from flags, then SITESYNC_* environment variables (a .env file in the working
// directory is loaded first if present), then an optional settingsctl.yaml file.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
