package http

import (
	"encoding/json"
	"net/http"
)

// Envelope test markers returned to AJAX callers
const (
	EnvelopeSuccess = "success"
	EnvelopeError   = "error"
)

// TokenMismatchMessage is the message of the generic AJAX failure envelope
const TokenMismatchMessage = "No Token Match - Please Reload Page"

// Envelope is the JSON object returned to AJAX requests. Every envelope carries
// a "test" key set to EnvelopeSuccess or EnvelopeError.
type Envelope map[string]any

// WriteJSON writes v as a JSON body with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteEnvelopeSuccess writes a success envelope merged with the given fields
func WriteEnvelopeSuccess(w http.ResponseWriter, fields Envelope) {
	body := Envelope{}
	for k, v := range fields {
		body[k] = v
	}
	body["test"] = EnvelopeSuccess
	WriteJSON(w, http.StatusOK, body)
}

// WriteEnvelopeError writes a failure envelope with a human readable message
func WriteEnvelopeError(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusOK, Envelope{
		"test":    EnvelopeError,
		"message": message,
	})
}
