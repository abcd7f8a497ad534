// Package httpx writes the JSON envelope shared by every API response.
package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/ukydev/service-desk/internal/apperr"
	"github.com/ukydev/service-desk/internal/models"
)

// WriteJSON writes a successful envelope carrying data.
func WriteJSON(w http.ResponseWriter, status int, message string, data interface{}) {
	write(w, status, models.Envelope{Success: true, Message: message, Data: data})
}

// WriteError writes a failed envelope with message.
func WriteError(w http.ResponseWriter, status int, message string) {
	write(w, status, models.Envelope{Success: false, Message: sanitize(message, 512)})
}

// WriteAppError maps err through the apperr taxonomy.
func WriteAppError(w http.ResponseWriter, err error) {
	WriteError(w, apperr.HTTPStatus(err), apperr.Message(err))
}

// DecodeJSON reads a JSON body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("invalid request body: %s", sanitize(err.Error(), 200))
	}
	return nil
}

func write(w http.ResponseWriter, status int, body models.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func sanitize(value string, limit int) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.TrimSpace(value)
	if len(value) > limit {
		for limit > 0 && !utf8.RuneStart(value[limit]) {
			limit--
		}
		value = value[:limit]
	}
	return value
}
