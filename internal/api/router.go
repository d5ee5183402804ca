// File: backend/internal/api/router.go
package api

import (
	"net/http"

	"github.com/fntelecomllc/rdapflow/backend/internal/config"
	"github.com/fntelecomllc/rdapflow/backend/internal/httpquery"
	"github.com/fntelecomllc/rdapflow/backend/internal/rdap"
	"github.com/gorilla/mux"
)

func NewRouter(cfg *config.AppConfig, cache *httpquery.ClientCache, exec *httpquery.Executor, resolver rdap.AddressResolver) *mux.Router {
	router := mux.NewRouter()
	apiHandler := NewAPIHandler(cfg, cache, exec, resolver)

	router.Use(LoggingMiddleware)
	router.Use(CORSMiddleware)

	router.HandleFunc("/ping", apiHandler.PingHandler).Methods(http.MethodGet, http.MethodOptions)

	apiV1 := router.PathPrefix("/api/v1").Subrouter()
	apiV1.Use(APIKeyAuthMiddleware(cfg.Server.APIKey))

	// Validation
	apiV1.HandleFunc("/validate", apiHandler.ValidateHandler).Methods(http.MethodPost, http.MethodOptions)
	apiV1.HandleFunc("/validate/results", apiHandler.GetResultsHandler).Methods(http.MethodGet, http.MethodOptions)
	apiV1.HandleFunc("/validate/report", apiHandler.GetReportHandler).Methods(http.MethodGet, http.MethodOptions)

	// Configuration Management (Server Defaults)
	apiV1.HandleFunc("/config/validator", apiHandler.GetValidatorConfigHandler).Methods(http.MethodGet, http.MethodOptions)
	apiV1.HandleFunc("/config/validator", apiHandler.UpdateValidatorConfigHandler).Methods(http.MethodPost, http.MethodOptions)
	apiV1.HandleFunc("/config/dns", apiHandler.GetDNSConfigHandler).Methods(http.MethodGet, http.MethodOptions)

	return router
}
