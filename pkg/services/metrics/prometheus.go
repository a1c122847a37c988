package metrics

import (
	"net/http"

	"github.com/nspcc-dev/kittychain/pkg/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewPrometheusService creates a new service exposing chain and RPC metrics
// registered in the default prometheus registry.
func NewPrometheusService(cfg config.BasicService, log *zap.Logger) *Service {
	handler := promhttp.Handler()
	srvs := make([]*http.Server, len(cfg.Addresses))
	for i, addr := range cfg.Addresses {
		srvs[i] = &http.Server{
			Addr:    addr,
			Handler: handler,
		}
	}
	return NewService("Prometheus", srvs, cfg, log)
}
