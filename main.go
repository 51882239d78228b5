package main

import (
	"embed"
	"fmt"
	"os"

	"timetracker/internal/commands"
)

const VERSION string = "1.0.0"

var BuildID string

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed ressources/js ressources/css
var staticFS embed.FS

func main() {
	commands.SetVersion(VERSION, BuildID)
	commands.SetAssets(templatesFS, staticFS)
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
