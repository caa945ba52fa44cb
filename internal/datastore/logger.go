package datastore

import (
	"log/slog"

	"github.com/tphakala/ringscout/internal/logging"
)

// Package-level logger for datastore events.
var logger *slog.Logger

func init() {
	var err error
	logger, _, err = logging.NewFileLogger("logs/datastore.log", "datastore", slog.LevelInfo)
	if err != nil {
		logging.Error("Failed to initialize datastore file logger", "error", err)
		logger = logging.ForService("datastore")
	}
}
