// Package testutil runs an in-process PubSub emulator for tests.
package testutil

import (
	"cloud.google.com/go/pubsub/pstest"

	"github.com/kodariks/iot-webapp/go/emulators"
	"github.com/kodariks/iot-webapp/go/sktest"
)

// Emulator starts an in-memory PubSub server and points the PubSub client
// library at it through PUBSUB_EMULATOR_HOST for the duration of the test.
// The server is returned so tests can inspect published messages.
//
// Tests which call this must not call t.Parallel.
func Emulator(t interface {
	sktest.TestingT
	Setenv(key, value string)
}) *pstest.Server {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() {
		_ = srv.Close()
	})
	t.Setenv(emulators.PubSubEnvVar, srv.Addr)
	return srv
}
