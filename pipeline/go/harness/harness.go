// Package harness runs a Bigtable handler the way the system test does:
// pick a table name that is unlikely to collide with concurrent runs,
// invoke the handler with a recording logger, and check that its progress
// output contains the expected lines.
package harness

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/kodariks/iot-webapp/go/sklog/recordinglogging"
	"github.com/kodariks/iot-webapp/go/sklog/sklogimpl"
	"github.com/kodariks/iot-webapp/pipeline/go/config"
)

const (
	// TableNamePrefix starts every generated table name.
	TableNamePrefix = "hello-bigtable-system-tests"

	// TableNameRange is the exclusive upper bound of the random suffix. Two
	// concurrent runs collide with probability 1/TableNameRange.
	TableNameRange = 10000

	// DefaultTimeout bounds the handler call when ctx has no deadline.
	DefaultTimeout = 2 * time.Minute
)

// Func is a handler under test. It must report its progress through log.
type Func func(ctx context.Context, cfg *config.Config, tableName string, log sklogimpl.Logger) error

// Invocation is one run of a handler.
type Invocation struct {
	ProjectID string
	ClusterID string
	TableName string

	// Output is every logged message, one per line.
	Output string

	// Records are the structured log records behind Output.
	Records []recordinglogging.Record
}

// HandlerError is returned when the handler itself fails.
type HandlerError struct {
	TableName string
	Err       error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler failed for table %s: %s", e.TableName, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// MissingSubstringError reports one expected substring absent from the
// output.
type MissingSubstringError struct {
	Substring string
}

func (e *MissingSubstringError) Error() string {
	return fmt.Sprintf("output does not contain %q", e.Substring)
}

// AssertionFailure lists every expected substring absent from the output.
type AssertionFailure struct {
	TableName string
	Missing   []string
	errs      *multierror.Error
}

func (e *AssertionFailure) Error() string {
	return fmt.Sprintf("handler output for table %s is incomplete: %s", e.TableName, e.errs.Error())
}

// Unwrap exposes the individual *MissingSubstringErrors.
func (e *AssertionFailure) Unwrap() []error {
	return e.errs.WrappedErrors()
}

// TableName returns "<TableNamePrefix>-<n>" with n drawn uniformly from
// [0, TableNameRange). A nil r uses the shared source of math/rand.
func TableName(r *rand.Rand) string {
	var n int
	if r == nil {
		n = rand.Intn(TableNameRange)
	} else {
		n = r.Intn(TableNameRange)
	}
	return fmt.Sprintf("%s-%d", TableNamePrefix, n)
}

// ExpectedSubstrings returns what the handler's output must contain after a
// successful run against tableName.
func ExpectedSubstrings(tableName string) []string {
	return []string{
		fmt.Sprintf("Creating the %s table.", tableName),
		"Writing a row of device data to the table.",
		"Getting a single row of device data by row key.",
		"25.875",
		"Scanning for all device data:",
		"25.87",
	}
}

// Check returns an *AssertionFailure naming every expected substring which
// is absent from output, or nil if all are present.
func Check(output, tableName string) error {
	var errs *multierror.Error
	var missing []string
	for _, s := range ExpectedSubstrings(tableName) {
		if !strings.Contains(output, s) {
			missing = append(missing, s)
			errs = multierror.Append(errs, &MissingSubstringError{Substring: s})
		}
	}
	if errs == nil {
		return nil
	}
	return &AssertionFailure{
		TableName: tableName,
		Missing:   missing,
		errs:      errs,
	}
}

// Run validates cfg, invokes fn with a fresh recording logger and checks its
// output. A *config.ConfigurationError is returned before fn is called if
// cfg is incomplete. A failing fn yields a *HandlerError; missing output a
// *AssertionFailure. The Invocation is returned whenever fn was called.
func Run(ctx context.Context, cfg *config.Config, tableName string, fn Func) (*Invocation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	rec := recordinglogging.New()
	err := fn(ctx, cfg, tableName, rec)
	inv := &Invocation{
		ProjectID: cfg.ProjectID,
		ClusterID: cfg.ClusterID,
		TableName: tableName,
		Output:    rec.String(),
		Records:   rec.Records(),
	}
	if err != nil {
		return inv, &HandlerError{TableName: tableName, Err: err}
	}
	return inv, Check(inv.Output, tableName)
}
