package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/kstielfps/VATImposter/internal/game"
	"github.com/kstielfps/VATImposter/internal/transport/apierr"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError renders err as {"error": {"kind", "message"}} with the status
// its kind maps to.
func writeError(w http.ResponseWriter, err error, debug bool) {
	writeJSON(w, apierr.Status(err), apierr.Envelope{Error: apierr.From(err, debug)})
}

// decodeBody fills v from the request body. An empty body leaves v as is.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return game.Validation("invalid request body")
	}
	return nil
}
