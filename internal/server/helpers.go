package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rendis/txlens/internal/trace"
	"github.com/rendis/txlens/pkg/schema"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeTxlensError maps a domain error onto an HTTP status and JSON body.
func writeTxlensError(w http.ResponseWriter, err error) {
	var terr *schema.TxlensError
	if !errors.As(err, &terr) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusInternalServerError
	switch terr.Code {
	case schema.ErrCodeValidation:
		status = http.StatusBadRequest
	case schema.ErrCodeNotFound:
		status = http.StatusNotFound
	case schema.ErrCodeConflict, schema.ErrCodeInvalidTransition:
		status = http.StatusConflict
	}

	body := map[string]any{"error": terr.Message, "code": terr.Code}
	if len(terr.Details) > 0 {
		body["details"] = terr.Details
	}
	writeJSON(w, status, body)
}

// queryInt extracts an integer query param with a default value.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// parseForest turns cached diagnostic lines into the invocation forest.
func parseForest(lines []string) []trace.InvocationRecord {
	if len(lines) == 0 {
		return nil
	}
	return trace.Hierarchy(trace.Parse(lines))
}
