//go:build windows

package conf

import (
	"os"
	"path/filepath"
)

// defaultJournalPath returns the conventional game journal directory.
func defaultJournalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Saved Games", "Frontier Developments", "Elite Dangerous")
}
