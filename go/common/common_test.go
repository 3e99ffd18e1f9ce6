package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitWith_DisabledOpts_NoError(t *testing.T) {
	port := ""
	structured := false
	require.NoError(t, InitWith("test-app", PrometheusOpt(&port), StructuredLoggingOpt(&structured)))
	require.NoError(t, InitWith("test-app", PrometheusOpt(nil), StructuredLoggingOpt(nil)))
}
