// Package httpx holds response helpers shared by the HTTP handlers.
package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"bagsoflaundry.com/web/internal/platform/requestctx"
)

// Code is the machine-readable "error" member of the JSON envelope.
type Code string

// Codes returned by the pricing and service-area endpoints.
const (
	CodeInvalidLbs     Code = "invalid_lbs"
	CodePostalRequired Code = "postal_required"
	CodeAreaNotFound   Code = "area_not_found"
)

// Error is the JSON error envelope:
//
//	{"error": code, "message": ..., "status": ..., "field": ..., "request_id": ..., "trace_id": ...}
type Error struct {
	Code    Code
	Message string
	Status  int
	// Field names the query parameter that was rejected, when there is one.
	Field string
}

// NewError builds an envelope. A zero status means 500.
func NewError(code Code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{Code: code, Message: message, Status: status}
}

// ForField returns a copy of e that names the offending parameter.
func (e Error) ForField(name string) Error {
	e.Field = name
	return e
}

type envelope struct {
	Error     Code   `json:"error"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// WriteError writes e with the chi request id and the Cloud Trace id attached.
func WriteError(ctx context.Context, w http.ResponseWriter, e Error) {
	if e.Status == 0 {
		e.Status = http.StatusInternalServerError
	}
	WriteJSON(w, e.Status, envelope{
		Error:     Code(oneLine(string(e.Code), 80)),
		Message:   oneLine(e.Message, 512),
		Status:    e.Status,
		Field:     oneLine(e.Field, 80),
		RequestID: oneLine(middleware.GetReqID(ctx), 80),
		TraceID:   oneLine(requestctx.TraceID(ctx), 64),
	})
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func oneLine(value string, limit int) string {
	value = strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(value))
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
