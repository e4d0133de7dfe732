// Package handler implements the dashgen HTTP API: generation, preview,
// drafts, generation history and the runtime of generated modules.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"
)

// maxBodyBytes bounds request bodies; template inputs are small.
const maxBodyBytes = 4 << 20

// envelope is the response shape of generated module endpoints.
type envelope struct {
	Data    any    `json:"data"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// messageBody is the response shape of the generator endpoints.
type messageBody struct {
	Message string `json:"message"`
}

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, log logrus.FieldLogger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("writeJSON encode error")
	}
}

// writeMessage writes {"message": msg}.
func writeMessage(w http.ResponseWriter, log logrus.FieldLogger, status int, msg string) {
	writeJSON(w, log, status, messageBody{Message: msg})
}

// writeEnvelope writes {data, message, status} with status as the HTTP code.
func writeEnvelope(w http.ResponseWriter, log logrus.FieldLogger, status int, data any, msg string) {
	writeJSON(w, log, status, envelope{Data: data, Message: msg, Status: status})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("malformed request body: %w", err)
	}
	return nil
}

// queryInt reads a positive integer query parameter, falling back to def.
func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
