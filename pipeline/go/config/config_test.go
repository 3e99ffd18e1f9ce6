package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kodariks/iot-webapp/go/emulators"
)

func lookupFrom(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

var validEnv = map[string]string{
	CredentialsEnvVar: "/secrets/service_account.json",
	ProjectEnvVar:     "test-project",
	ClusterEnvVar:     "test-cluster",
}

func TestFromEnv_AllSet_Success(t *testing.T) {
	cfg, err := FromEnv(lookupFrom(validEnv))
	require.NoError(t, err)
	require.Equal(t, &Config{
		CredentialsPath: "/secrets/service_account.json",
		ProjectID:       "test-project",
		ClusterID:       "test-cluster",
		Topic:           DefaultTopic,
		Table:           DefaultTable,
	}, cfg)
}

func TestFromEnv_SameEnvTwice_EqualConfigs(t *testing.T) {
	a, err := FromEnv(lookupFrom(validEnv))
	require.NoError(t, err)
	b, err := FromEnv(lookupFrom(validEnv))
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestFromEnv_MissingValues_ConfigurationError(t *testing.T) {
	for _, envVar := range []string{CredentialsEnvVar, ProjectEnvVar, ClusterEnvVar} {
		t.Run(envVar, func(t *testing.T) {
			env := map[string]string{}
			for k, v := range validEnv {
				if k != envVar {
					env[k] = v
				}
			}
			_, err := FromEnv(lookupFrom(env))
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			require.Equal(t, envVar, cfgErr.EnvVar)
		})
	}
}

func TestFromEnv_EmptyValue_TreatedAsMissing(t *testing.T) {
	env := map[string]string{
		CredentialsEnvVar: "",
		ProjectEnvVar:     "test-project",
		ClusterEnvVar:     "test-cluster",
	}
	_, err := FromEnv(lookupFrom(env))
	require.EqualError(t, err, "configuration error: CredentialsPath is not set (set GOOGLE_APPLICATION_CREDENTIALS)")
}

func TestValidate_NilConfig_ConfigurationError(t *testing.T) {
	var cfg *Config
	var cfgErr *ConfigurationError
	require.True(t, errors.As(cfg.Validate(), &cfgErr))
}

func TestLoad_FileWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
  // Deployment settings.
  credentials_path: "/secrets/sa.json",
  project_id: "file-project",
  cluster_id: "file-cluster",
  topic: "readings",
}`), 0644))

	cfg, err := Load(path, lookupFrom(map[string]string{ProjectEnvVar: "env-project"}))
	require.NoError(t, err)
	require.Equal(t, &Config{
		CredentialsPath: "/secrets/sa.json",
		ProjectID:       "env-project",
		ClusterID:       "file-cluster",
		Topic:           "readings",
		Table:           DefaultTable,
	}, cfg)
}

func TestLoad_MissingFile_Error(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json5"), lookupFrom(nil))
	require.Error(t, err)
	var cfgErr *ConfigurationError
	require.False(t, errors.As(err, &cfgErr))
}

func TestClientOptions_Emulator_NoCredentialsNeeded(t *testing.T) {
	t.Setenv(emulators.BigTableEnvVar, "localhost:8892")
	cfg := &Config{CredentialsPath: "/does/not/exist"}
	opts, err := cfg.ClientOptions(context.Background())
	require.NoError(t, err)
	require.Empty(t, opts)
}

func TestClientOptions_MissingCredentialsFile_Error(t *testing.T) {
	t.Setenv(emulators.BigTableEnvVar, "")
	t.Setenv(emulators.PubSubEnvVar, "")
	cfg := &Config{CredentialsPath: filepath.Join(t.TempDir(), "missing.json")}
	_, err := cfg.ClientOptions(context.Background())
	require.Error(t, err)
}
