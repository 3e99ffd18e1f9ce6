// Package emulators contains utilities to work with the *_EMULATOR_HOST
// environment variables which point the Google Cloud client libraries at a
// local emulator instead of the real service.
package emulators

import (
	"os"
)

// Emulator represents a Google Cloud emulator.
type Emulator string

const (
	// BigTable represents a Google Cloud Bigtable emulator.
	BigTable       = Emulator("BigTable")
	BigTableEnvVar = "BIGTABLE_EMULATOR_HOST"
	BigTablePort   = 8892

	// PubSub represents a Google Cloud PubSub emulator.
	PubSub       = Emulator("PubSub")
	PubSubEnvVar = "PUBSUB_EMULATOR_HOST"
	PubSubPort   = 8893
)

// AllEmulators lists every emulator the repo knows about.
var AllEmulators = []Emulator{BigTable, PubSub}

// GetEmulatorHostEnvVar returns the contents of the *_EMULATOR_HOST environment variable
// corresponding to the given emulator, or the empty string if the environment variable is unset.
func GetEmulatorHostEnvVar(emulator Emulator) string {
	return os.Getenv(GetEmulatorHostEnvVarName(emulator))
}

// GetEmulatorHostEnvVarName returns the name of the *_EMULATOR_HOST environment variable
// corresponding to the given emulator.
func GetEmulatorHostEnvVarName(emulator Emulator) string {
	switch emulator {
	case BigTable:
		return BigTableEnvVar
	case PubSub:
		return PubSubEnvVar
	default:
		panic("Unknown emulator " + emulator)
	}
}

// AnyConfigured returns true if at least one emulator environment variable
// is set.
func AnyConfigured() bool {
	for _, e := range AllEmulators {
		if GetEmulatorHostEnvVar(e) != "" {
			return true
		}
	}
	return false
}
