package scaffold

import (
	"os"
	"strings"
	"testing"
)

func TestCheckExisting(t *testing.T) {
	t.Run("clean directory passes", func(t *testing.T) {
		chdirTemp(t)
		if err := CheckExisting(); err != nil {
			t.Errorf("CheckExisting() on clean directory error = %v", err)
		}
	})

	t.Run("existing arcane.yml fails with guidance", func(t *testing.T) {
		chdirTemp(t)
		os.WriteFile("arcane.yml", []byte("version: \"1.0\"\n"), 0644)

		err := CheckExisting()
		if err == nil {
			t.Fatal("expected error for existing arcane.yml")
		}
		if !strings.Contains(err.Error(), "already initialized") {
			t.Errorf("error should mention prior initialization, got: %v", err)
		}
		if !strings.Contains(err.Error(), "--force") {
			t.Errorf("error should suggest --force, got: %v", err)
		}
	})
}
