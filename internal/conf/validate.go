package conf

import (
	"fmt"
	"strings"
)

// ValidateSettings checks the loaded settings for values that would make a
// component misbehave silently. Configuration problems are fatal at startup.
func ValidateSettings(s *Settings) error {
	var problems []string

	if s.Database.Path == "" {
		problems = append(problems, "database.path must not be empty")
	}
	if s.Database.SpatialIndex.Enabled && s.Database.SpatialIndex.CellSizeLy <= 0 {
		problems = append(problems, "database.spatialindex.cellsizely must be positive")
	}
	if s.Journal.PollInterval <= 0 {
		problems = append(problems, "journal.pollinterval must be positive")
	}
	if s.LiveFeed.Enabled {
		if s.LiveFeed.Broker == "" {
			problems = append(problems, "livefeed.broker is required when livefeed.enabled is true")
		}
		if s.LiveFeed.Topic == "" {
			problems = append(problems, "livefeed.topic must not be empty")
		}
		if s.LiveFeed.SeenCacheSize <= 0 {
			problems = append(problems, "livefeed.seencachesize must be positive")
		}
	}
	if s.Resolver.Timeout <= 0 {
		problems = append(problems, "resolver.timeout must be positive")
	}
	if s.Resolver.MaxRetries < 1 {
		problems = append(problems, "resolver.maxretries must be at least 1")
	}
	if s.Search.ResultCap < 1 {
		problems = append(problems, "search.resultcap must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
