// File: backend/internal/api/handler_utils.go
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// respondWithError sends a JSON error response.
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON sends a JSON response with the given status code and payload.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Printf("API Error: Failed to marshal JSON response: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		jsonError := fmt.Sprintf("{\"error\": \"Failed to marshal JSON response: %v\"}", err)
		w.Write([]byte(jsonError))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		w.Write(response)
	}
}
