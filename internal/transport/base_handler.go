package transport

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wordaddict/finance-sub001/internal"
	"github.com/wordaddict/finance-sub001/internal/core/common/validation"
	coreuser "github.com/wordaddict/finance-sub001/internal/core/user"
	"github.com/wordaddict/finance-sub001/pkg/logger"
)

const maxBodyBytes = 1 << 20

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteMessage writes {"message": msg} merged with the payload fields.
func (h *BaseHandler) WriteMessage(w http.ResponseWriter, status int, message string, payload map[string]interface{}) {
	body := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["message"] = message
	h.WriteJSON(w, status, body)
}

// WriteAppError writes an AppError as the flat error body.
func (h *BaseHandler) WriteAppError(w http.ResponseWriter, appErr *internal.AppError) {
	h.WriteJSON(w, appErr.StatusCode, appErr)
}

// WriteError writes an error response
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	h.Logger.Error("http error", "status", status, "message", message)
	h.WriteJSON(w, status, map[string]interface{}{
		"error": message,
	})
}

// HandleServiceError maps service errors onto responses; anything that is not an
// AppError is logged with its cause and reported as a 500.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if appErr, ok := internal.IsAppError(err); ok {
		lg := logger.From(r.Context())
		if appErr.StatusCode >= http.StatusInternalServerError {
			lg.Error("request failed", "code", appErr.Code, "error", appErr.Error())
		} else {
			lg.Warn("request rejected", "code", appErr.Code, "status", appErr.StatusCode, "message", appErr.GetDetailedMessage())
		}
		h.WriteAppError(w, appErr)
		return
	}

	logger.From(r.Context()).Error("unexpected error", "error", err)
	h.WriteAppError(w, internal.NewInternalError("internal server error", err))
}

// DecodeJSONBody decodes and validates a request body. Unknown fields are rejected.
func (h *BaseHandler) DecodeJSONBody(r *http.Request, dest any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return internal.NewValidationError("request body is required", internal.ErrCodeInvalidBody)
		}
		return internal.NewValidationError("invalid request body", internal.ErrCodeInvalidBody).
			WithDetails(map[string]string{"error": err.Error()})
	}
	if appErr := validation.Struct(dest); appErr != nil {
		return appErr
	}
	return nil
}

// Principal returns the authenticated caller or the unauthenticated error.
func (h *BaseHandler) Principal(r *http.Request) (*coreuser.Principal, error) {
	p, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		return nil, internal.ErrUnauthenticated
	}
	return p, nil
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(authHeader[7:])
}

// ClientIP prefers the first X-Forwarded-For hop.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}
