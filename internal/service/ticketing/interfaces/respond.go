package interfaces

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"ticketing/internal/pkg/logger"
	"ticketing/internal/service/ticketing/domain"
)

const maxBodyBytes = 1 << 20

type envelope struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Status: "success", Data: data})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg, Code: code})
}

var statusByKind = map[domain.Kind]int{
	domain.KindNotFound:     http.StatusNotFound,
	domain.KindValidation:   http.StatusBadRequest,
	domain.KindUnauthorized: http.StatusUnauthorized,
	domain.KindForbidden:    http.StatusForbidden,
	domain.KindConflict:     http.StatusConflict,
}

// writeDomainError maps err onto the status taxonomy. Internal errors are logged and
// answered with a generic message.
func writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		if status, ok := statusByKind[de.Kind]; ok {
			code := de.Code
			if code == "" {
				code = string(de.Kind)
			}
			writeError(w, status, code, de.Error())
			return
		}
	}
	logger.Ctx(ctx).Error().Err(err).Msg("request failed")
	writeError(w, http.StatusInternalServerError, string(domain.KindInternal), "internal server error")
}

// decodeJSON reads one JSON object from the request body, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidation("invalid_body", "invalid request body: %s", err)
	}
	return nil
}
