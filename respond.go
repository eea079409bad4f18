package main

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
)

type envelope map[string]interface{}

func writeJSON(w http.ResponseWriter, code int, payload envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// writeSuccess merges extra payload fields into the standard envelope.
func writeSuccess(w http.ResponseWriter, extra envelope) {
	payload := envelope{"status": "success"}
	for k, v := range extra {
		payload[k] = v
	}
	writeJSON(w, http.StatusOK, payload)
}

// writeError always returns a well-formed envelope; the client never gets an
// empty body on failure.
func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, envelope{"status": "error", "message": message})
}

// withCORS opens the API to any origin so the game client can call it from
// anywhere.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
