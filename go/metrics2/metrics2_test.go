package metrics2

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetCounter_SameNameAndTags_ReturnsSameCounter(t *testing.T) {
	c := NewClient()
	a := c.GetCounter("readings-written", map[string]string{"table": "t1"})
	b := c.GetCounter("readings_written", map[string]string{"table": "t1"})
	a.Inc(2)
	b.Inc(3)
	require.Equal(t, int64(5), a.Get())

	other := c.GetCounter("readings_written", map[string]string{"table": "t2"})
	require.Equal(t, int64(0), other.Get())

	a.Reset()
	require.Equal(t, int64(0), b.Get())
}

func TestGetCounter_DifferentTagKeys_Panics(t *testing.T) {
	c := NewClient()
	c.GetCounter("x", map[string]string{"a": "1"})
	require.Panics(t, func() {
		c.GetCounter("x", map[string]string{"b": "1"})
	})
}

func TestHandler_ExportsCounters(t *testing.T) {
	c := NewClient()
	c.GetCounter("pipeline_readings_received", map[string]string{"source": "push"}).Inc(7)

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(w.Result().Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `pipeline_readings_received{source="push"} 7`)
}
