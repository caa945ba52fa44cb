package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validSettings() *Settings {
	s := &Settings{}
	s.Database.Path = "ringscout.db"
	s.Database.SpatialIndex.Enabled = true
	s.Database.SpatialIndex.CellSizeLy = 100
	s.Journal.PollInterval = 2 * time.Second
	s.Resolver.Timeout = 10 * time.Second
	s.Resolver.MaxRetries = 3
	s.Search.ResultCap = 100
	return s
}

func TestValidateSettingsOK(t *testing.T) {
	assert.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateSettingsRejectsEmptyDatabasePath(t *testing.T) {
	s := validSettings()
	s.Database.Path = ""
	assert.Error(t, ValidateSettings(s))
}

func TestValidateSettingsRejectsBadPollInterval(t *testing.T) {
	s := validSettings()
	s.Journal.PollInterval = 0
	assert.Error(t, ValidateSettings(s))
}

func TestValidateSettingsLiveFeedRequiresBroker(t *testing.T) {
	s := validSettings()
	s.LiveFeed.Enabled = true
	s.LiveFeed.Topic = "eddn/journal/#"
	s.LiveFeed.SeenCacheSize = 1024
	assert.Error(t, ValidateSettings(s))

	s.LiveFeed.Broker = "tcp://relay.example.net:1883"
	assert.NoError(t, ValidateSettings(s))
}

func TestValidateSettingsDisabledLiveFeedSkipsChecks(t *testing.T) {
	s := validSettings()
	s.LiveFeed.Enabled = false
	s.LiveFeed.Broker = ""
	assert.NoError(t, ValidateSettings(s))
}
