//go:build !windows

package conf

import (
	"os"
	"path/filepath"
)

// defaultJournalPath returns the conventional game journal directory for the
// platform. On non-Windows systems the game runs under Proton, so the journal
// lives inside the Steam compatdata prefix; fall back to the home directory
// so the tailer has somewhere valid to watch.
func defaultJournalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	proton := filepath.Join(home,
		".steam", "steam", "steamapps", "compatdata", "359320", "pfx",
		"drive_c", "users", "steamuser", "Saved Games",
		"Frontier Developments", "Elite Dangerous")
	if _, err := os.Stat(proton); err == nil {
		return proton
	}
	return home
}
