package structuredlogging

import (
	"context"
	"slices"
	"strings"
	"testing"

	"cloud.google.com/go/logging"
	"github.com/stretchr/testify/require"

	"github.com/kodariks/iot-webapp/go/sklog/sklogimpl"
)

func TestSplitMessage_Short_SingleChunk(t *testing.T) {
	require.Equal(t, []string{"hello\nworld"}, slices.Collect(splitMessage("hello\nworld")))
}

func TestSplitMessage_ManyLines_KeepsLinesIntact(t *testing.T) {
	line := strings.Repeat("a", 1000)
	lines := make([]string, 120)
	for i := range lines {
		lines[i] = line
	}
	chunks := slices.Collect(splitMessage(strings.Join(lines, "\n")))
	require.Len(t, chunks, 3)
	total := 0
	for _, c := range chunks {
		require.LessOrEqual(t, len(c), maxLogMessageBytes)
		for _, l := range strings.Split(c, "\n") {
			require.Equal(t, line, l)
			total++
		}
	}
	require.Equal(t, 120, total)
}

func TestSplitMessage_LongLine_IsCut(t *testing.T) {
	msg := strings.Repeat("b", 2*maxLogMessageBytes+10)
	chunks := slices.Collect(splitMessage(msg))
	require.Len(t, chunks, 3)
	require.Len(t, chunks[0], maxLogMessageBytes)
	require.Len(t, chunks[1], maxLogMessageBytes)
	require.Len(t, chunks[2], 10)
}

func TestConvertSeverity(t *testing.T) {
	require.Equal(t, logging.Info, convertSeverity(sklogimpl.Info))
	require.Equal(t, logging.Alert, convertSeverity(sklogimpl.Fatal))
	require.Equal(t, logging.Default, convertSeverity(sklogimpl.Severity(42)))
}

func TestWithContext_RoundTrip(t *testing.T) {
	ctx := WithContext(context.Background(), Context{Labels: map[string]string{"table": "t1"}})
	require.Equal(t, "t1", getCtx(ctx).Labels["table"])
	require.Nil(t, getCtx(context.Background()))
}
