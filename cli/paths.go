// paths.go - Centralized application path management
// All config and data files live under ~/.shelldeck
package main

import (
	"log"
	"os"
	"path/filepath"
)

// AppHomeDir is the name of the application's home directory
const AppHomeDir = ".shelldeck"

// GetAppHome returns the application home directory (~/.shelldeck)
// Creates it if it doesn't exist
func GetAppHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Warning: Could not get user home directory: %v", err)
		return "."
	}

	appHome := filepath.Join(home, AppHomeDir)

	// Ensure it exists
	if err := os.MkdirAll(appHome, 0755); err != nil {
		log.Printf("Warning: Could not create app home directory %s: %v", appHome, err)
	}

	return appHome
}

// GetSettingsPath returns the path to settings.yaml (~/.shelldeck/settings.yaml)
func GetSettingsPath() string {
	return filepath.Join(GetAppHome(), "settings.yaml")
}

// GetDatabasePath returns the path to the host database (~/.shelldeck/shelldeck.db)
func GetDatabasePath() string {
	return filepath.Join(GetAppHome(), "shelldeck.db")
}
