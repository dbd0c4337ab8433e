package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/safar/storefront/internal/apperr"
	"github.com/safar/storefront/internal/logging"
)

type envelope map[string]interface{}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.FromContext(r.Context()).WithError(err).Error("Error encoding JSON response")
	}
}

func respondOK(w http.ResponseWriter, r *http.Request, status int, data envelope) {
	if data == nil {
		data = envelope{}
	}
	data["success"] = true
	respondJSON(w, r, status, data)
}

// respondError writes the user-facing message of err with the status for its
// kind. Causes of server errors are logged and never sent to the client.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	entry := logging.FromContext(r.Context()).WithError(err).WithField("status", status)
	if kind == apperr.KindServer {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	respondJSON(w, r, status, envelope{"success": false, "message": apperr.Message(err)})
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperr.TooLarge("request body too large")
	}
	return apperr.Validation("invalid request body")
}
