// Package handlers exposes the fleet over HTTP with a {success, data|error}
// JSON envelope.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/fleet"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

var errBadJSON = errors.New("invalid JSON")

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Response{Success: true, Data: data}); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}

func fail(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Response{Error: msg}); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}

// NotFound answers unknown routes with the JSON envelope.
func NotFound(w http.ResponseWriter, r *http.Request) {
	fail(w, http.StatusNotFound, "route not found")
}

// MethodNotAllowed answers known routes called with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	fail(w, http.StatusMethodNotAllowed, "method not allowed")
}

// respondError maps a fleet error kind onto a status code. Anything the
// engine did not classify is logged and hidden behind a generic message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch fleet.KindOf(err) {
	case fleet.KindValidation, fleet.KindPrecondition:
		fail(w, http.StatusBadRequest, err.Error())
	case fleet.KindNotFound:
		fail(w, http.StatusNotFound, err.Error())
	case fleet.KindConflict:
		fail(w, http.StatusConflict, err.Error())
	default:
		log.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("request failed")
		fail(w, http.StatusInternalServerError, "internal server error")
	}
}

// readBody reads the request body with date fields normalized.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	return normalizeDates(body)
}

// decode reads the body into dst. An empty body leaves dst untouched.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return unmarshal(body, dst)
}

func unmarshal(body []byte, dst any) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return errBadJSON
	}
	return nil
}

// badRequest answers a body that could not be read or parsed.
func badRequest(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		fail(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	fail(w, http.StatusBadRequest, errBadJSON.Error())
}

var dayOnly = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// dateFields are the JSON keys that hold time.Time values.
var dateFields = []string{"date", "date_added", "license_expiry"}

// normalizeDates rewrites calendar-day values of known date fields to
// midnight UTC so they decode into time.Time.
func normalizeDates(body []byte) ([]byte, error) {
	if len(body) == 0 {
		return body, nil
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, errBadJSON
	}
	changed := false
	for _, key := range dateFields {
		raw, ok := doc[key]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) != nil {
			continue
		}
		switch {
		case s == "":
			delete(doc, key)
		case dayOnly.MatchString(s):
			doc[key], _ = json.Marshal(s + "T00:00:00Z")
		default:
			continue
		}
		changed = true
	}
	if !changed {
		return body, nil
	}
	return json.Marshal(doc)
}
