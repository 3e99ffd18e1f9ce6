// Package bt contains helpers for administering Cloud Bigtable tables.
package bt

import (
	"context"

	"cloud.google.com/go/bigtable"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kodariks/iot-webapp/go/emulators"
	"github.com/kodariks/iot-webapp/go/skerr"
	"github.com/kodariks/iot-webapp/go/sklog"
	"github.com/kodariks/iot-webapp/go/util"
)

// InitBigtable creates the given table and column families if they don't
// exist already.
func InitBigtable(ctx context.Context, projectID, instanceID, tableID string, colFamilies []string, opts ...option.ClientOption) error {
	adminClient, err := bigtable.NewAdminClient(ctx, projectID, instanceID, opts...)
	if err != nil {
		return skerr.Wrapf(err, "unable to create admin client")
	}
	defer util.Close(adminClient)
	return EnsureTable(ctx, adminClient, tableID, colFamilies)
}

// EnsureTable creates the table and column families using an existing admin
// client. Tables and column families which already exist are left alone.
func EnsureTable(ctx context.Context, adminClient *bigtable.AdminClient, tableID string, colFamilies []string) error {
	// Create the table. Ignore error if it already existed.
	err, code := ErrToCode(adminClient.CreateTable(ctx, tableID))
	if err != nil && code != codes.AlreadyExists {
		return skerr.Wrapf(err, "creating table %s", tableID)
	} else if err == nil {
		sklog.Infof("Created table: %s", tableID)
	}

	// Create the column families. Ignore errors if they already existed.
	for _, colFamName := range colFamilies {
		err, code = ErrToCode(adminClient.CreateColumnFamily(ctx, tableID, colFamName))
		if err != nil && code != codes.AlreadyExists {
			return skerr.Wrapf(err, "creating column family %s in table %s", colFamName, tableID)
		}
	}
	return nil
}

// DeleteTables deletes the given tables using an existing admin client.
// Tables which do not exist are ignored.
func DeleteTables(ctx context.Context, adminClient *bigtable.AdminClient, tableNames ...string) error {
	for _, tableName := range tableNames {
		err, code := ErrToCode(adminClient.DeleteTable(ctx, tableName))
		if err != nil && code != codes.NotFound {
			return skerr.Wrapf(err, "deleting table %s", tableName)
		}
	}
	return nil
}

// TableExists returns true if the table is present on the instance.
func TableExists(ctx context.Context, adminClient *bigtable.AdminClient, tableName string) (bool, error) {
	tables, err := adminClient.Tables(ctx)
	if err != nil {
		return false, skerr.Wrapf(err, "listing tables")
	}
	for _, t := range tables {
		if t == tableName {
			return true, nil
		}
	}
	return false, nil
}

// ErrToCode returns the error that is passed and a gRPC code extracted from the error.
// If the error did not originate in gRPC the returned code is codes.Unknown.
// See https://godoc.org/google.golang.org/grpc/codes for a list of codes.
func ErrToCode(err error) (error, codes.Code) {
	st, _ := status.FromError(err)
	return err, st.Code()
}

// EnsureNotEmulator will panic if it detects the BigTable Emulator is configured.
func EnsureNotEmulator() {
	if emulators.GetEmulatorHostEnvVar(emulators.BigTable) != "" {
		panic("BigTable Emulator detected. Be sure to unset the following environment variable: " + emulators.GetEmulatorHostEnvVarName(emulators.BigTable))
	}
}
