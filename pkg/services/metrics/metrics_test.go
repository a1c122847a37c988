package metrics

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/nspcc-dev/kittychain/internal/testchain"
	"github.com/nspcc-dev/kittychain/pkg/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func get(t *testing.T, url string) string {
	cl := http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestPrometheusService(t *testing.T) {
	bc := testchain.NewChain(t, nil)
	_, err := bc.CreateKitty(testchain.Account(0))
	require.NoError(t, err)
	_, err = bc.SealBlock()
	require.NoError(t, err)

	cfg := config.BasicService{Enabled: true, Addresses: []string{"localhost:0"}}
	srv := NewPrometheusService(cfg, zaptest.NewLogger(t))
	require.Equal(t, "Prometheus", srv.Name())
	require.NoError(t, srv.Start())
	t.Cleanup(srv.ShutDown)

	body := get(t, "http://"+srv.Addresses()[0]+"/metrics")
	require.True(t, strings.Contains(body, "kittychain_current_block_height 1"), body)
	require.True(t, strings.Contains(body, "kittychain_kitty_count 1"), body)
	require.True(t, strings.Contains(body, `kittychain_calls_total{method="createkitty",state="HALT"}`), body)
}

func TestPprofService(t *testing.T) {
	cfg := config.BasicService{Enabled: true, Addresses: []string{"localhost:0"}}
	srv := NewPprofService(cfg, zaptest.NewLogger(t))
	require.NoError(t, srv.Start())
	// Second start is no-op.
	require.NoError(t, srv.Start())

	get(t, "http://"+srv.Addresses()[0]+"/debug/pprof/cmdline")
	srv.ShutDown()
	srv.ShutDown()
}

func TestDisabledService(t *testing.T) {
	srv := NewPrometheusService(config.BasicService{Addresses: []string{"localhost:0"}}, zaptest.NewLogger(t))
	require.NoError(t, srv.Start())
	require.Equal(t, []string{"localhost:0"}, srv.Addresses())
	srv.ShutDown()
}
