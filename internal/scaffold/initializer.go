package scaffold

import (
	"embed"
	"fmt"
	"os"

	"github.com/arcanelabs/arcaneos/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// Initialize creates a starter arcane.yml in the working directory.
// If force is true, an existing arcane.yml is removed first.
func Initialize(force bool) error {
	if force {
		if err := handleForce(); err != nil {
			return err
		}
	}

	content, err := templatesFS.ReadFile("templates/arcane.yml.tmpl")
	if err != nil {
		return fmt.Errorf("failed to read arcane.yml template: %w", err)
	}

	if err := os.WriteFile("arcane.yml", content, 0644); err != nil {
		return fmt.Errorf("failed to write arcane.yml: %w", err)
	}

	return validateCreatedConfig()
}

// handleForce removes an existing arcane.yml if --force was specified
func handleForce() error {
	if _, err := os.Stat("arcane.yml"); err == nil {
		fmt.Println("⚠️  Removing existing arcane.yml...")
		if err := os.Remove("arcane.yml"); err != nil {
			return fmt.Errorf("failed to remove arcane.yml: %w", err)
		}
	}
	return nil
}

// validateCreatedConfig loads the scaffolded file through the real config
// parser so a broken template never ships a broken project.
func validateCreatedConfig() error {
	if _, err := config.Load("arcane.yml"); err != nil {
		return fmt.Errorf("created arcane.yml is not valid: %w", err)
	}
	return nil
}

// PrintSuccess prints the success message with created files
func PrintSuccess() {
	fmt.Println("\n✅ Successfully initialized ArcaneOS instance!")
	fmt.Println("\nCreated:")
	fmt.Println("  ✓ arcane.yml")
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Point redis.addr at a running Redis server")
	fmt.Println("  2. Set GEMINI_API_KEY (or configure an http planner) to enable the archon planner")
	fmt.Println("  3. Cast your first spell: arcaneos cast \"summon claude\"")
}
