package cli

import (
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/genesis/internal/runtime"
)

func TestMetricsServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	runtime.NewMetrics(reg)

	ms, err := startMetricsServer("127.0.0.1:0", reg)
	require.NoError(t, err)
	defer ms.Close()

	resp, err := http.Get("http://" + ms.addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "go_goroutines")
	assert.Contains(t, string(body), "genesis_runtime_iterations_total")
}

func TestMetricsServer_BadAddr(t *testing.T) {
	_, err := startMetricsServer("not-an-address", prometheus.NewRegistry())
	require.Error(t, err)
}
