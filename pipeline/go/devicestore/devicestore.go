package devicestore

/*
   This Store implementation uses BigTable to store device readings, one
   reading per row.
*/

import (
	"context"
	"time"

	"cloud.google.com/go/bigtable"
	"go.opencensus.io/trace"
	"google.golang.org/api/option"

	"github.com/kodariks/iot-webapp/go/bt"
	"github.com/kodariks/iot-webapp/go/skerr"
	"github.com/kodariks/iot-webapp/pipeline/go/devicedata"
)

const (
	INSERT_TIMEOUT = 30 * time.Second
	QUERY_TIMEOUT  = 5 * time.Second

	// FULL_SCAN_TIMEOUT bounds a Scan with no prefix, which reads the whole
	// table.
	FULL_SCAN_TIMEOUT = 10 * time.Minute
)

// Store persists device readings.
type Store interface {
	// Write stores the reading and returns its row key.
	Write(ctx context.Context, r *devicedata.Reading) (string, error)

	// Get returns the reading stored under rowKey, or nil with no error if
	// there is none.
	Get(ctx context.Context, rowKey string) (*devicedata.Reading, error)

	// Scan calls fn for every reading whose row key starts with prefix, in
	// row key order, until fn returns false. An empty prefix scans
	// everything.
	Scan(ctx context.Context, prefix string, fn func(rowKey string, r *devicedata.Reading) bool) error
}

// BTStore is an implementation of Store which uses BigTable. It also
// administers its own table.
type BTStore struct {
	client    *bigtable.Client
	admin     *bigtable.AdminClient
	table     *bigtable.Table
	tableName string
}

// New returns a BTStore for the given table. The table is not created;
// call EnsureTable for that.
func New(ctx context.Context, project, instance, tableName string, opts ...option.ClientOption) (*BTStore, error) {
	client, err := bigtable.NewClient(ctx, project, instance, opts...)
	if err != nil {
		return nil, skerr.Wrapf(err, "failed to create BigTable client")
	}
	admin, err := bigtable.NewAdminClient(ctx, project, instance, opts...)
	if err != nil {
		_ = client.Close()
		return nil, skerr.Wrapf(err, "failed to create BigTable admin client")
	}
	return &BTStore{
		client:    client,
		admin:     admin,
		table:     client.Open(tableName),
		tableName: tableName,
	}, nil
}

// TableName returns the name of the table backing the store.
func (s *BTStore) TableName() string {
	return s.tableName
}

// EnsureTable creates the table and its column family if needed.
func (s *BTStore) EnsureTable(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "devicestore_EnsureTable")
	defer span.End()
	return bt.EnsureTable(ctx, s.admin, s.tableName, []string{devicedata.COLUMN_FAMILY})
}

// DeleteTable deletes the table. A missing table is not an error.
func (s *BTStore) DeleteTable(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "devicestore_DeleteTable")
	defer span.End()
	return bt.DeleteTables(ctx, s.admin, s.tableName)
}

// Close closes both clients.
func (s *BTStore) Close() error {
	err := s.client.Close()
	if adminErr := s.admin.Close(); err == nil {
		err = adminErr
	}
	return skerr.Wrap(err)
}

// See documentation for Store interface.
func (s *BTStore) Write(ctx context.Context, r *devicedata.Reading) (string, error) {
	ctx, span := trace.StartSpan(ctx, "devicestore_Write")
	defer span.End()
	if err := r.Validate(); err != nil {
		return "", skerr.Wrap(err)
	}
	rk := r.RowKey()
	ctx, cancel := context.WithTimeout(ctx, INSERT_TIMEOUT)
	defer cancel()
	if err := s.table.Apply(ctx, rk, r.Mutation()); err != nil {
		return "", skerr.Wrapf(err, "failed to write row %s to table %s", rk, s.tableName)
	}
	return rk, nil
}

// See documentation for Store interface.
func (s *BTStore) Get(ctx context.Context, rowKey string) (*devicedata.Reading, error) {
	ctx, span := trace.StartSpan(ctx, "devicestore_Get")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, QUERY_TIMEOUT)
	defer cancel()
	row, err := s.table.ReadRow(ctx, rowKey, bigtable.RowFilter(bigtable.LatestNFilter(1)))
	if err != nil {
		return nil, skerr.Wrapf(err, "failed to read row %s from table %s", rowKey, s.tableName)
	}
	// A missing row comes back empty, not as an error.
	if len(row) == 0 {
		return nil, nil
	}
	return devicedata.FromRow(row)
}

// See documentation for Store interface.
func (s *BTStore) Scan(ctx context.Context, prefix string, fn func(rowKey string, r *devicedata.Reading) bool) error {
	ctx, span := trace.StartSpan(ctx, "devicestore_Scan")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, scanTimeout(prefix))
	defer cancel()
	rowSet := bigtable.RowSet(bigtable.InfiniteRange(""))
	if prefix != "" {
		rowSet = bigtable.PrefixRange(prefix)
	}
	var decodeErr error
	if err := s.table.ReadRows(ctx, rowSet, func(row bigtable.Row) bool {
		var r *devicedata.Reading
		r, decodeErr = devicedata.FromRow(row)
		if decodeErr != nil {
			return false
		}
		return fn(row.Key(), r)
	}, bigtable.RowFilter(bigtable.LatestNFilter(1))); err != nil {
		return skerr.Wrapf(err, "failed to scan table %s", s.tableName)
	}
	return skerr.Wrap(decodeErr)
}

// scanTimeout returns the deadline for a Scan of prefix. A shorter deadline
// already on the caller's context still wins.
func scanTimeout(prefix string) time.Duration {
	if prefix == "" {
		return FULL_SCAN_TIMEOUT
	}
	return QUERY_TIMEOUT
}

var _ Store = (*BTStore)(nil)
