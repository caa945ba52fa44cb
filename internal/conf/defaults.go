// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "RingScout")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/ringscout.log")

	viper.SetDefault("database.path", "ringscout.db")
	viper.SetDefault("database.spatialindex.enabled", true)
	viper.SetDefault("database.spatialindex.cellsizely", 100.0)

	viper.SetDefault("journal.path", defaultJournalPath())
	viper.SetDefault("journal.pollinterval", 2*time.Second)

	viper.SetDefault("livefeed.enabled", false)
	viper.SetDefault("livefeed.broker", "")
	viper.SetDefault("livefeed.topic", "eddn/journal/#")
	viper.SetDefault("livefeed.reconnectcooldown", 5*time.Second)
	viper.SetDefault("livefeed.connecttimeout", 30*time.Second)
	viper.SetDefault("livefeed.seencachesize", 4096)

	viper.SetDefault("resolver.remoteurl", "https://www.edsm.net/api-v1/system")
	viper.SetDefault("resolver.timeout", 10*time.Second)
	viper.SetDefault("resolver.cachettl", time.Hour)
	viper.SetDefault("resolver.maxretries", 3)

	viper.SetDefault("search.maxdistancely", 500.0)
	viper.SetDefault("search.resultcap", 100)

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.listen", "localhost:9476")
}
