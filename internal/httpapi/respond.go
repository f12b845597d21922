// Package httpapi is the storefront HTTP surface: chi router,
// session middleware and JSON handlers.
package httpapi

import (
	"encoding/json"
	"net/http"
)

// Every endpoint answers with this envelope so clients branch on one
// boolean instead of sniffing shapes.
type successResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type errorResponse struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	respond(w, status, successResponse{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respond(w, status, successResponse{Success: true, Message: message})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respond(w, status, errorResponse{Error: errorBody{Message: message, Code: code}})
}

func respondFieldErrors(w http.ResponseWriter, details any) {
	respond(w, http.StatusUnprocessableEntity, errorResponse{Error: errorBody{
		Message: "validation failed",
		Code:    "validation_error",
		Details: details,
	}})
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already on the wire; a failed encode means
	// the client is gone.
	_ = json.NewEncoder(w).Encode(body)
}
