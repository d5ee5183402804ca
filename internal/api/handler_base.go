// File: backend/internal/api/handler_base.go
package api

import (
	"sync"

	"github.com/fntelecomllc/rdapflow/backend/internal/config"
	"github.com/fntelecomllc/rdapflow/backend/internal/httpquery"
	"github.com/fntelecomllc/rdapflow/backend/internal/rdap"
)

// APIHandler holds shared dependencies for API handlers: configuration, the
// HTTP client cache, the query executor, and the DNS resolver.
type APIHandler struct {
	Config   *config.AppConfig
	Cache    *httpquery.ClientCache
	Exec     *httpquery.Executor
	Resolver rdap.AddressResolver

	configMutex sync.RWMutex // Protects AppConfig during dynamic updates

	// Last completed run, kept for the results and report endpoints.
	runMutex    sync.RWMutex
	lastResults []rdap.ValidationResult
	lastReport  string
}

// NewAPIHandler creates a new APIHandler with dependencies.
func NewAPIHandler(cfg *config.AppConfig, cache *httpquery.ClientCache, exec *httpquery.Executor, resolver rdap.AddressResolver) *APIHandler {
	return &APIHandler{
		Config:   cfg,
		Cache:    cache,
		Exec:     exec,
		Resolver: resolver,
	}
}

func (h *APIHandler) storeRun(results []rdap.ValidationResult, report string) {
	h.runMutex.Lock()
	defer h.runMutex.Unlock()
	h.lastResults = results
	h.lastReport = report
}

func (h *APIHandler) lastRun() ([]rdap.ValidationResult, string) {
	h.runMutex.RLock()
	defer h.runMutex.RUnlock()
	return h.lastResults, h.lastReport
}
