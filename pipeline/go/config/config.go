// Package config holds the explicit configuration of the pipeline. It is
// built once, from the environment and optionally a json5 file, and then
// passed to everything that talks to Google Cloud.
package config

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/bigtable"
	"cloud.google.com/go/pubsub"
	"github.com/flynn/json5"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/kodariks/iot-webapp/go/emulators"
	"github.com/kodariks/iot-webapp/go/skerr"
)

// Environment variables recognized by FromEnv.
const (
	CredentialsEnvVar = "GOOGLE_APPLICATION_CREDENTIALS"
	ProjectEnvVar     = "GCLOUD_PROJECT"
	ClusterEnvVar     = "BIGTABLE_CLUSTER"
	TopicEnvVar       = "PUBSUB_TOPIC"
	TableEnvVar       = "BIGTABLE_TABLE"
)

const (
	// DefaultTopic carries device readings when PUBSUB_TOPIC is unset.
	DefaultTopic = "device-data"

	// DefaultTable receives device readings when BIGTABLE_TABLE is unset.
	DefaultTable = "device-data"
)

// Config is the configuration shared by the handler, the ingester and the
// binaries.
type Config struct {
	// CredentialsPath is a service account key file.
	CredentialsPath string `json:"credentials_path"`

	// ProjectID is the Google Cloud project.
	ProjectID string `json:"project_id"`

	// ClusterID is the Bigtable cluster the data lives on. The client
	// libraries address it as the instance.
	ClusterID string `json:"cluster_id"`

	// Topic carries device readings.
	Topic string `json:"topic"`

	// Table receives device readings from the ingester.
	Table string `json:"table"`
}

// ConfigurationError is returned when a required value is absent.
type ConfigurationError struct {
	// Field is the name of the missing Config field.
	Field string

	// EnvVar is the environment variable which sets Field.
	EnvVar string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s is not set (set %s)", e.Field, e.EnvVar)
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// FromEnv builds a Config from the environment variables above, read
// through lookup. Pass os.LookupEnv in production. The result is
// validated.
func FromEnv(lookup LookupFunc) (*Config, error) {
	cfg := &Config{}
	cfg.applyEnv(lookup)
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads a json5 config file, then applies any environment overrides
// read through lookup. The result is validated.
func Load(path string, lookup LookupFunc) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, skerr.Wrapf(err, "reading config file %s", path)
	}
	cfg := &Config{}
	if err := json5.Unmarshal(b, cfg); err != nil {
		return nil, skerr.Wrapf(err, "parsing config file %s", path)
	}
	cfg.applyEnv(lookup)
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup LookupFunc) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(&c.CredentialsPath, CredentialsEnvVar)
	set(&c.ProjectID, ProjectEnvVar)
	set(&c.ClusterID, ClusterEnvVar)
	set(&c.Topic, TopicEnvVar)
	set(&c.Table, TableEnvVar)
}

func (c *Config) setDefaults() {
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.Table == "" {
		c.Table = DefaultTable
	}
}

// Validate returns a *ConfigurationError for the first required value which
// is absent. The credentials file itself is not opened here.
func (c *Config) Validate() error {
	if c == nil {
		return &ConfigurationError{Field: "CredentialsPath", EnvVar: CredentialsEnvVar}
	}
	switch {
	case c.CredentialsPath == "":
		return &ConfigurationError{Field: "CredentialsPath", EnvVar: CredentialsEnvVar}
	case c.ProjectID == "":
		return &ConfigurationError{Field: "ProjectID", EnvVar: ProjectEnvVar}
	case c.ClusterID == "":
		return &ConfigurationError{Field: "ClusterID", EnvVar: ClusterEnvVar}
	}
	return nil
}

// ClientOptions returns the options for Google Cloud clients. When an
// emulator is configured no credentials are needed and none are returned;
// otherwise the token source comes from the credentials file.
func (c *Config) ClientOptions(ctx context.Context) ([]option.ClientOption, error) {
	if emulators.AnyConfigured() {
		return nil, nil
	}
	b, err := os.ReadFile(c.CredentialsPath)
	if err != nil {
		return nil, skerr.Wrapf(err, "reading credentials file %s", c.CredentialsPath)
	}
	creds, err := google.CredentialsFromJSON(ctx, b, bigtable.Scope, bigtable.AdminScope, pubsub.ScopePubSub)
	if err != nil {
		return nil, skerr.Wrapf(err, "parsing credentials file %s", c.CredentialsPath)
	}
	return []option.ClientOption{option.WithTokenSource(creds.TokenSource)}, nil
}
