package harness

import (
	"context"
	"errors"
	"math/rand"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kodariks/iot-webapp/go/sklog/sklogimpl"
	"github.com/kodariks/iot-webapp/pipeline/go/config"
)

var tableNameRegex = regexp.MustCompile(`^hello-bigtable-system-tests-(\d+)$`)

func testConfig() *config.Config {
	return &config.Config{
		CredentialsPath: "/secrets/service_account.json",
		ProjectID:       "test-project",
		ClusterID:       "test-cluster",
	}
}

// fakeHandler logs the lines a well behaved handler logs.
func fakeHandler(ctx context.Context, cfg *config.Config, tableName string, log sklogimpl.Logger) error {
	log.Log(0, sklogimpl.Info, "Creating the %s table.", tableName)
	log.Log(0, sklogimpl.Info, "Writing a row of device data to the table.")
	log.Log(0, sklogimpl.Info, "Getting a single row of device data by row key.")
	log.Log(0, sklogimpl.Info, "\tdevice#temp-sensor-01#20261017T090000.000Z: temperature=25.875")
	log.Log(0, sklogimpl.Info, "Scanning for all device data:")
	log.Log(0, sklogimpl.Info, "\tdevice#temp-sensor-01#20261017T090000.000Z: temperature=25.875")
	return nil
}

func TestTableName_FormatAndRange(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		name := TableName(r)
		m := tableNameRegex.FindStringSubmatch(name)
		require.NotNil(t, m, name)
		n, err := strconv.Atoi(m[1])
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 0)
		require.Less(t, n, TableNameRange)
	}
	require.Regexp(t, tableNameRegex, TableName(nil))
}

func TestTableName_SameSeed_SameName(t *testing.T) {
	a := TableName(rand.New(rand.NewSource(42)))
	b := TableName(rand.New(rand.NewSource(42)))
	require.Equal(t, a, b)
}

func TestExpectedSubstrings_LiteralScenario(t *testing.T) {
	require.Equal(t, []string{
		"Creating the hello-bigtable-system-tests-4821 table.",
		"Writing a row of device data to the table.",
		"Getting a single row of device data by row key.",
		"25.875",
		"Scanning for all device data:",
		"25.87",
	}, ExpectedSubstrings("hello-bigtable-system-tests-4821"))
}

func TestCheck_AllPresent_NoError(t *testing.T) {
	out := `Creating the t table.
Writing a row of device data to the table.
Getting a single row of device data by row key.
	k: temperature=25.875
Scanning for all device data:
	k: temperature=25.875`
	require.NoError(t, Check(out, "t"))
}

func TestCheck_ReportsEveryMissingSubstring(t *testing.T) {
	out := `Creating the other table.
Writing a row of device data to the table.
Scanning for all device data:
	k: temperature=25.87`
	err := Check(out, "t")
	var af *AssertionFailure
	require.True(t, errors.As(err, &af))
	require.Equal(t, []string{
		"Creating the t table.",
		"Getting a single row of device data by row key.",
		"25.875",
	}, af.Missing)

	var missing *MissingSubstringError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, "Creating the t table.", missing.Substring)
	require.Contains(t, err.Error(), `"25.875"`)
}

func TestRun_LiteralScenario_Success(t *testing.T) {
	const tableName = "hello-bigtable-system-tests-4821"
	inv, err := Run(context.Background(), testConfig(), tableName, fakeHandler)
	require.NoError(t, err)
	require.Equal(t, "test-project", inv.ProjectID)
	require.Equal(t, "test-cluster", inv.ClusterID)
	require.Equal(t, tableName, inv.TableName)
	require.Len(t, inv.Records, 6)
	require.Equal(t, "Creating the hello-bigtable-system-tests-4821 table.", inv.Records[0].Message)
	require.Equal(t, sklogimpl.Info, inv.Records[0].Severity)
}

func TestRun_MissingCredentials_ConfigurationErrorBeforeInvocation(t *testing.T) {
	cfg := testConfig()
	cfg.CredentialsPath = ""
	called := false
	inv, err := Run(context.Background(), cfg, "t", func(ctx context.Context, cfg *config.Config, tableName string, log sklogimpl.Logger) error {
		called = true
		log.Log(0, sklogimpl.Info, "should never be logged")
		return nil
	})
	var cfgErr *config.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	require.Equal(t, config.CredentialsEnvVar, cfgErr.EnvVar)
	require.False(t, called)
	require.Nil(t, inv)
}

func TestRun_HandlerFails_HandlerErrorWithCause(t *testing.T) {
	cause := errors.New("bigtable unavailable")
	inv, err := Run(context.Background(), testConfig(), "t", func(ctx context.Context, cfg *config.Config, tableName string, log sklogimpl.Logger) error {
		log.Log(0, sklogimpl.Info, "Creating the %s table.", tableName)
		return cause
	})
	var he *HandlerError
	require.True(t, errors.As(err, &he))
	require.Equal(t, "t", he.TableName)
	require.True(t, errors.Is(err, cause))
	require.Equal(t, "Creating the t table.", inv.Output)
}

func TestRun_IncompleteOutput_AssertionFailure(t *testing.T) {
	inv, err := Run(context.Background(), testConfig(), "t", func(ctx context.Context, cfg *config.Config, tableName string, log sklogimpl.Logger) error {
		log.Log(0, sklogimpl.Info, "Creating the %s table.", tableName)
		return nil
	})
	var af *AssertionFailure
	require.True(t, errors.As(err, &af))
	require.Len(t, af.Missing, 5)
	require.NotNil(t, inv)
}

func TestRun_NoDeadline_AppliesDefaultTimeout(t *testing.T) {
	var deadline time.Time
	_, err := Run(context.Background(), testConfig(), "t", func(ctx context.Context, cfg *config.Config, tableName string, log sklogimpl.Logger) error {
		var ok bool
		deadline, ok = ctx.Deadline()
		require.True(t, ok)
		return fakeHandler(ctx, cfg, tableName, log)
	})
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(DefaultTimeout), deadline, 5*time.Second)
}

func TestRun_SameConfigTwice_SameOutput(t *testing.T) {
	a, err := Run(context.Background(), testConfig(), "t", fakeHandler)
	require.NoError(t, err)
	b, err := Run(context.Background(), testConfig(), "t", fakeHandler)
	require.NoError(t, err)
	require.Equal(t, a.Output, b.Output)
}
