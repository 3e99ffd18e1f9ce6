package devicedata

import (
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/bigtable"
	"github.com/stretchr/testify/require"
)

var ts = time.Date(2026, time.October, 17, 12, 30, 15, 123456789, time.UTC)

func TestRowKey(t *testing.T) {
	r := &Reading{DeviceID: "temp-sensor-01", Timestamp: ts, Temperature: 25.875}
	require.Equal(t, "device#temp-sensor-01#20261017T123015.123Z", r.RowKey())
	require.True(t, strings.HasPrefix(r.RowKey(), DevicePrefix("temp-sensor-01")))
	require.False(t, strings.HasPrefix(r.RowKey(), DevicePrefix("temp-sensor-0")))
}

func TestRowKey_SortsChronologically(t *testing.T) {
	a := &Reading{DeviceID: "d", Timestamp: ts}
	b := &Reading{DeviceID: "d", Timestamp: ts.Add(90 * time.Minute)}
	require.Less(t, a.RowKey(), b.RowKey())
}

func TestFormatTemperature(t *testing.T) {
	require.Equal(t, "25.875", FormatTemperature(25.875))
	require.Equal(t, "-3", FormatTemperature(-3))
	require.Equal(t, "0.1", FormatTemperature(0.1))
}

func TestValidate(t *testing.T) {
	require.NoError(t, (&Reading{DeviceID: "d", Timestamp: ts}).Validate())
	require.Error(t, (&Reading{Timestamp: ts}).Validate())
	require.Error(t, (&Reading{DeviceID: "a#b", Timestamp: ts}).Validate())
	require.Error(t, (&Reading{DeviceID: "d"}).Validate())
}

func TestFromRow_Success(t *testing.T) {
	row := bigtable.Row{
		COLUMN_FAMILY: []bigtable.ReadItem{
			{Row: "k", Column: COLUMN_DEVICE_ID_FULL, Timestamp: bigtable.Time(ts), Value: []byte("temp-sensor-01")},
			{Row: "k", Column: COLUMN_TEMPERATURE_FULL, Timestamp: bigtable.Time(ts), Value: []byte("25.875")},
		},
	}
	r, err := FromRow(row)
	require.NoError(t, err)
	require.Equal(t, "temp-sensor-01", r.DeviceID)
	require.Equal(t, 25.875, r.Temperature)
	require.True(t, ts.Truncate(time.Microsecond).Equal(r.Timestamp))
	require.Equal(t, time.UTC, r.Timestamp.Location())
}

func TestFromRow_MissingTemperature_Error(t *testing.T) {
	row := bigtable.Row{
		COLUMN_FAMILY: []bigtable.ReadItem{
			{Row: "k", Column: COLUMN_DEVICE_ID_FULL, Value: []byte("temp-sensor-01")},
		},
	}
	_, err := FromRow(row)
	require.Error(t, err)
}

func TestFromRow_BadTemperature_Error(t *testing.T) {
	row := bigtable.Row{
		COLUMN_FAMILY: []bigtable.ReadItem{
			{Row: "k", Column: COLUMN_TEMPERATURE_FULL, Value: []byte("warm")},
		},
	}
	_, err := FromRow(row)
	require.Error(t, err)
}

func TestDecode(t *testing.T) {
	r, err := Decode([]byte(`{"device_id": "temp-sensor-01", "timestamp": "2026-10-17T12:30:15Z", "temperature": 25.875}`))
	require.NoError(t, err)
	require.Equal(t, &Reading{
		DeviceID:    "temp-sensor-01",
		Timestamp:   time.Date(2026, time.October, 17, 12, 30, 15, 0, time.UTC),
		Temperature: 25.875,
	}, r)

	r, err = Decode([]byte(`{"device_id": "d", "temperature": 1.5}`))
	require.NoError(t, err)
	require.True(t, r.Timestamp.IsZero())

	_, err = Decode([]byte(`{"temperature": 1.5}`))
	require.Error(t, err)

	_, err = Decode([]byte(`not json`))
	require.Error(t, err)
}

func TestEncode_DecodeRoundTrip(t *testing.T) {
	in := &Reading{DeviceID: "d", Timestamp: ts, Temperature: 25.875}
	b, err := in.Encode()
	require.NoError(t, err)
	out, err := Decode(b)
	require.NoError(t, err)
	require.True(t, in.Timestamp.Equal(out.Timestamp))
	require.Equal(t, in.Temperature, out.Temperature)
}
