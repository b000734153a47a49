package scaffold

import (
	"fmt"
	"os"
)

// CheckExisting checks if arcane.yml already exists.
// Returns an error if it does, nil otherwise
func CheckExisting() error {
	if _, err := os.Stat("arcane.yml"); err == nil {
		return fmt.Errorf("project already initialized\n\nFound existing: arcane.yml\n\nUse 'arcaneos init --force' to reinitialize (this will overwrite existing configuration)")
	}
	return nil
}
