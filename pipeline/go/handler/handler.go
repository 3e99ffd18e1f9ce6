// Package handler implements the Bigtable round trip run by the data
// pipeline's cloud function: create a table, write a row of device data,
// read it back by key, scan the table, then delete it.
package handler

import (
	"context"
	"time"

	"google.golang.org/api/option"

	"github.com/kodariks/iot-webapp/go/now"
	"github.com/kodariks/iot-webapp/go/skerr"
	"github.com/kodariks/iot-webapp/go/sklog/sklogimpl"
	"github.com/kodariks/iot-webapp/go/util"
	"github.com/kodariks/iot-webapp/pipeline/go/config"
	"github.com/kodariks/iot-webapp/pipeline/go/devicedata"
	"github.com/kodariks/iot-webapp/pipeline/go/devicestore"
)

const (
	// DemoDeviceID is the device the demo row belongs to.
	DemoDeviceID = "temp-sensor-01"

	// DemoTemperature is the temperature stored in the demo row.
	DemoTemperature = 25.875
)

// BigtableInput runs the round trip against tableName on cfg's project and
// cluster, reporting progress through log. The table is deleted before
// returning, also when a step after its creation fails.
func BigtableInput(ctx context.Context, cfg *config.Config, tableName string, log sklogimpl.Logger, opts ...option.ClientOption) (retErr error) {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(opts) == 0 {
		var err error
		opts, err = cfg.ClientOptions(ctx)
		if err != nil {
			return skerr.Wrap(err)
		}
	}
	p := progress{log: log}

	store, err := devicestore.New(ctx, cfg.ProjectID, cfg.ClusterID, tableName, opts...)
	if err != nil {
		return skerr.Wrap(err)
	}
	defer util.Close(store)

	p.infof("Creating the %s table.", tableName)
	if err := store.EnsureTable(ctx); err != nil {
		return skerr.Wrap(err)
	}
	defer func() {
		p.infof("Deleting the %s table.", tableName)
		// The round trip may have used up ctx; deletion still deserves a try.
		delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), devicestore.INSERT_TIMEOUT)
		defer cancel()
		if err := store.DeleteTable(delCtx); err != nil && retErr == nil {
			retErr = skerr.Wrap(err)
		}
	}()

	p.infof("Writing a row of device data to the table.")
	reading := &devicedata.Reading{
		DeviceID:    DemoDeviceID,
		Timestamp:   now.Now(ctx).UTC(),
		Temperature: DemoTemperature,
	}
	rowKey, err := store.Write(ctx, reading)
	if err != nil {
		return skerr.Wrap(err)
	}

	p.infof("Getting a single row of device data by row key.")
	got, err := store.Get(ctx, rowKey)
	if err != nil {
		return skerr.Wrap(err)
	}
	if got == nil {
		return skerr.Fmt("row %s was written but could not be read back", rowKey)
	}
	p.reading(rowKey, got)

	p.infof("Scanning for all device data:")
	if err := store.Scan(ctx, "", func(rowKey string, r *devicedata.Reading) bool {
		p.reading(rowKey, r)
		return true
	}); err != nil {
		return skerr.Wrap(err)
	}
	return nil
}

// progress writes the human readable lines of the round trip.
type progress struct {
	log sklogimpl.Logger
}

func (p progress) infof(format string, args ...interface{}) {
	p.log.Log(1, sklogimpl.Info, format, args...)
}

func (p progress) reading(rowKey string, r *devicedata.Reading) {
	p.log.Log(1, sklogimpl.Info, "\t%s: temperature=%s @%s", rowKey, devicedata.FormatTemperature(r.Temperature), r.Timestamp.Format(time.RFC3339Nano))
}
