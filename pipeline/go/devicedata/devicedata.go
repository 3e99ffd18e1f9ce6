// Package devicedata defines a device reading and how it is laid out in
// Bigtable and encoded on the wire.
package devicedata

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigtable"

	"github.com/kodariks/iot-webapp/go/skerr"
)

const (
	// COLUMN_FAMILY holds every column of a reading.
	COLUMN_FAMILY = "device_data"

	// COLUMN_TEMPERATURE stores the temperature as decimal text.
	COLUMN_TEMPERATURE = "temperature"

	// COLUMN_DEVICE_ID stores the device ID, which is also part of the row key.
	COLUMN_DEVICE_ID = "device_id"

	// ROW_KEY_PREFIX starts every row key.
	ROW_KEY_PREFIX = "device#"

	// ROW_KEY_FORMAT is used to build a row key from a device ID and a
	// formatted timestamp.
	ROW_KEY_FORMAT = ROW_KEY_PREFIX + "%s#%s"

	// TIMESTAMP_FORMAT is used in row keys so that rows of a device sort
	// chronologically.
	TIMESTAMP_FORMAT = "20060102T150405.000Z"
)

var (
	// Fully-qualified Bigtable column names, as they appear in a bigtable.Row.
	COLUMN_TEMPERATURE_FULL = fmt.Sprintf("%s:%s", COLUMN_FAMILY, COLUMN_TEMPERATURE)
	COLUMN_DEVICE_ID_FULL   = fmt.Sprintf("%s:%s", COLUMN_FAMILY, COLUMN_DEVICE_ID)
)

// Reading is a single measurement sent by a device.
type Reading struct {
	DeviceID    string    `json:"device_id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
}

// Validate returns an error if the Reading cannot be stored.
func (r *Reading) Validate() error {
	if r.DeviceID == "" {
		return skerr.Fmt("reading has no device_id")
	}
	if strings.Contains(r.DeviceID, "#") {
		return skerr.Fmt("device_id %q must not contain '#'", r.DeviceID)
	}
	if r.Timestamp.IsZero() {
		return skerr.Fmt("reading for %s has no timestamp", r.DeviceID)
	}
	return nil
}

// RowKey returns the Bigtable row key for the reading.
func (r *Reading) RowKey() string {
	return fmt.Sprintf(ROW_KEY_FORMAT, r.DeviceID, r.Timestamp.UTC().Format(TIMESTAMP_FORMAT))
}

// DevicePrefix returns the row key prefix shared by all readings of a device.
func DevicePrefix(deviceID string) string {
	return ROW_KEY_PREFIX + deviceID + "#"
}

// FormatTemperature renders a temperature with the fewest digits that still
// round-trip, e.g. 25.875.
func FormatTemperature(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}

// Mutation returns the Bigtable mutation which stores the reading. Cells are
// timestamped with the reading's time; Bigtable keeps millisecond precision.
func (r *Reading) Mutation() *bigtable.Mutation {
	ts := bigtable.Time(r.Timestamp.Truncate(time.Millisecond))
	mut := bigtable.NewMutation()
	mut.Set(COLUMN_FAMILY, COLUMN_DEVICE_ID, ts, []byte(r.DeviceID))
	mut.Set(COLUMN_FAMILY, COLUMN_TEMPERATURE, ts, []byte(FormatTemperature(r.Temperature)))
	return mut
}

// FromRow decodes a Reading from a row read with a LatestNFilter(1) filter.
func FromRow(row bigtable.Row) (*Reading, error) {
	r := &Reading{}
	var sawTemperature bool
	for _, item := range row[COLUMN_FAMILY] {
		switch item.Column {
		case COLUMN_DEVICE_ID_FULL:
			r.DeviceID = string(item.Value)
		case COLUMN_TEMPERATURE_FULL:
			t, err := strconv.ParseFloat(string(item.Value), 64)
			if err != nil {
				return nil, skerr.Wrapf(err, "row %s has an invalid temperature %q", row.Key(), item.Value)
			}
			r.Temperature = t
			r.Timestamp = item.Timestamp.Time().UTC()
			sawTemperature = true
		}
	}
	if !sawTemperature {
		return nil, skerr.Fmt("row %s has no %s column", row.Key(), COLUMN_TEMPERATURE_FULL)
	}
	return r, nil
}

// Decode parses a reading published by a device:
//
//	{"device_id": "temp-sensor-01", "timestamp": "2026-10-17T12:00:00Z", "temperature": 25.875}
//
// The timestamp may be omitted; the caller is then expected to fill it in.
func Decode(b []byte) (*Reading, error) {
	var r Reading
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, skerr.Wrapf(err, "decoding device reading")
	}
	if r.DeviceID == "" {
		return nil, skerr.Fmt("reading has no device_id")
	}
	return &r, nil
}

// Encode is the inverse of Decode.
func (r *Reading) Encode() ([]byte, error) {
	b, err := json.Marshal(r)
	return b, skerr.Wrap(err)
}
