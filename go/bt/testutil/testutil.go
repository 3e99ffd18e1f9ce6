package bt_testutil

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigtable/bttest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kodariks/iot-webapp/go/bt"
	"github.com/kodariks/iot-webapp/go/emulators"
	"github.com/kodariks/iot-webapp/go/sktest"
)

// TestingT is a sktest.TestingT which can also set environment variables.
// *testing.T satisfies it.
type TestingT interface {
	sktest.TestingT
	Setenv(key, value string)
}

// Emulator starts an in-memory Bigtable server and points the Bigtable
// client library at it through BIGTABLE_EMULATOR_HOST for the duration of
// the test. It returns the server address.
//
// Tests which call this must not call t.Parallel.
func Emulator(t TestingT) string {
	t.Helper()
	srv, err := bttest.NewServer("localhost:0")
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	t.Setenv(emulators.BigTableEnvVar, srv.Addr)
	return srv.Addr
}

// SetupBigTable starts an emulator and creates the given table and column
// families on a fresh instance. Returns the project and instance names which
// can be passed to code under test.
func SetupBigTable(t TestingT, tableID string, colFamilies ...string) (string, string) {
	Emulator(t)
	project := "test-project"
	instance := fmt.Sprintf("test-instance-%s", uuid.New())
	require.NoError(t, bt.InitBigtable(context.Background(), project, instance, tableID, colFamilies))
	return project, instance
}
