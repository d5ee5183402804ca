// File: backend/internal/api/config_handlers.go
package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/fntelecomllc/rdapflow/backend/internal/config"
)

// GetValidatorConfigHandler retrieves the default validator configuration.
func (h *APIHandler) GetValidatorConfigHandler(w http.ResponseWriter, r *http.Request) {
	h.configMutex.RLock()
	validatorConfig := h.Config.Validator
	h.configMutex.RUnlock()
	respondWithJSON(w, http.StatusOK, validatorConfig)
}

// UpdateValidatorConfigHandler updates the default validator configuration
// and persists it.
func (h *APIHandler) UpdateValidatorConfigHandler(w http.ResponseWriter, r *http.Request) {
	var reqCfg config.RDAPValidatorConfig
	if err := json.NewDecoder(r.Body).Decode(&reqCfg); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	h.configMutex.Lock()
	h.Config.Validator = reqCfg
	h.Config.Normalize()
	if err := config.Save(h.Config, h.Config.GetLoadedFromPath()); err != nil {
		h.configMutex.Unlock()
		log.Printf("API Error: UpdateValidatorConfigHandler - Failed to save updated config: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to save validator configuration")
		return
	}
	currentCfg := h.Config.Validator
	h.configMutex.Unlock()

	log.Printf("API: Validator configuration updated")
	respondWithJSON(w, http.StatusOK, currentCfg)
}

// GetDNSConfigHandler retrieves the DNS resolver configuration.
func (h *APIHandler) GetDNSConfigHandler(w http.ResponseWriter, r *http.Request) {
	h.configMutex.RLock()
	dnsConfig := h.Config.DNS
	h.configMutex.RUnlock()
	respondWithJSON(w, http.StatusOK, dnsConfig)
}
