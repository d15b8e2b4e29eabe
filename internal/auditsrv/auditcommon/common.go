package auditcommon

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ServerVersion is the version of the audit portal server.
const ServerVersion = "0.1.0"

// ApiVersion is the version of the admin API surface.
const ApiVersion = "0.1.0-alpha.1"

// DefaultConfigFile is used when no configuration file is provided.
const DefaultConfigFile = "config.toml"

// InitLogger initializes the global logger with Unix millisecond
// timestamps.
func InitLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}
