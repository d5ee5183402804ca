// File: backend/internal/api/handlers.go
// Validation handlers: running a conformance query and fetching its outcome.
package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/fntelecomllc/rdapflow/backend/internal/rdap"
	"github.com/fntelecomllc/rdapflow/backend/internal/rdapquery"
)

// --- Structs for Validation Handlers ---

type ValidationRequest struct {
	TargetURI             string `json:"targetUri"`
	NetworkProtocol       string `json:"networkProtocol,omitempty"`
	QueryType             string `json:"queryType,omitempty"`
	TimeoutSeconds        int    `json:"timeoutSeconds,omitempty"`
	MaxRedirects          int    `json:"maxRedirects,omitempty"`
	UseRdapProfileFeb2024 *bool  `json:"useRdapProfileFeb2024,omitempty"`
	GtldRegistry          *bool  `json:"gtldRegistry,omitempty"`
	GtldRegistrar         *bool  `json:"gtldRegistrar,omitempty"`
}

type ValidationResponse struct {
	Success          bool                    `json:"success"`
	Results          []rdap.ValidationResult `json:"results"`
	ConnectionReport string                  `json:"connectionReport"`
	Connections      int                     `json:"connections"`
	Successful       int                     `json:"successful"`
	Errors           int                     `json:"errors"`
}

// ValidateHandler runs one validation against the requested endpoint. Request
// fields override the server's validator defaults for this run only.
func (h *APIHandler) ValidateHandler(w http.ResponseWriter, r *http.Request) {
	var req ValidationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if req.TargetURI == "" {
		respondWithError(w, http.StatusBadRequest, "targetUri is required")
		return
	}

	h.configMutex.RLock()
	runCfg := h.Config.Validator
	h.configMutex.RUnlock()

	runCfg.TargetURI = req.TargetURI
	if req.NetworkProtocol != "" {
		runCfg.NetworkProtocol = req.NetworkProtocol
	}
	if req.QueryType != "" {
		runCfg.QueryType = req.QueryType
	}
	if req.TimeoutSeconds > 0 {
		runCfg.TimeoutSeconds = req.TimeoutSeconds
	}
	if req.MaxRedirects > 0 {
		runCfg.MaxRedirects = req.MaxRedirects
	}
	if req.UseRdapProfileFeb2024 != nil {
		runCfg.UseRdapProfileFeb2024 = *req.UseRdapProfileFeb2024
	}
	if req.GtldRegistry != nil {
		runCfg.GtldRegistry = *req.GtldRegistry
	}
	if req.GtldRegistrar != nil {
		runCfg.GtldRegistrar = *req.GtldRegistrar
	}

	log.Printf("API: Validating %s over %s", runCfg.TargetURI, runCfg.NetworkProtocol)

	qctx := rdap.NewQueryContext(&runCfg, h.Resolver)
	validator := rdapquery.New(h.Exec, &runCfg)
	success := validator.Run(r.Context(), qctx)

	results := qctx.Results.GetAll()
	report := qctx.Tracker.Report()
	h.storeRun(results, report)

	respondWithJSON(w, http.StatusOK, ValidationResponse{
		Success:          success,
		Results:          results,
		ConnectionReport: report,
		Connections:      qctx.Tracker.Count(),
		Successful:       qctx.Tracker.SuccessCount(),
		Errors:           qctx.Tracker.ErrorCount(),
	})
}

// GetResultsHandler returns the results of the last completed run.
func (h *APIHandler) GetResultsHandler(w http.ResponseWriter, r *http.Request) {
	results, _ := h.lastRun()
	if results == nil {
		respondWithError(w, http.StatusNotFound, "No validation run recorded")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// GetReportHandler returns the connection report of the last completed run
// as plain text.
func (h *APIHandler) GetReportHandler(w http.ResponseWriter, r *http.Request) {
	_, report := h.lastRun()
	if report == "" {
		respondWithError(w, http.StatusNotFound, "No validation run recorded")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(report))
}
