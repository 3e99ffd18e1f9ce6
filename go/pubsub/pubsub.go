// Package pubsub contains utilities for working with Cloud PubSub.
package pubsub

import (
	"github.com/kodariks/iot-webapp/go/emulators"
)

// EnsureNotEmulator panics if the PubSub emulator environment variable is set.
func EnsureNotEmulator() {
	if emulators.GetEmulatorHostEnvVar(emulators.PubSub) != "" {
		panic("PubSub Emulator detected. Be sure to unset the following environment variable: " + emulators.GetEmulatorHostEnvVarName(emulators.PubSub))
	}
}
