package core

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// init initializes the logging configuration for the application based on the DEBUG_MFF environment variable.
// It sets the global logging level to Disabled, Debug, or Info based on the value of DEBUG_MFF.
func init() {
	zerolog.SetGlobalLevel(LogLevel(os.Getenv("DEBUG_MFF")))
}

// LogLevel maps a DEBUG_MFF value to a zerolog level.
// "off" or "0" disables logging, "full" enables debug output, anything else is info.
func LogLevel(value string) zerolog.Level {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "off", "0":
		return zerolog.Disabled
	case "full":
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}
