package http

import (
	"encoding/json"
	"errors"
	"net/http"

	appErrors "propchat/pkg/errors"
	"propchat/pkg/logger"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Response struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func statusFor(code appErrors.Code) int {
	switch code {
	case appErrors.CodeNotFound:
		return http.StatusNotFound
	case appErrors.CodePermissionDenied:
		return http.StatusForbidden
	case appErrors.CodeFailedPrecondition, appErrors.CodeAlreadyExists:
		return http.StatusConflict
	case appErrors.CodeInvalidArgument:
		return http.StatusBadRequest
	case appErrors.CodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Message: "success", Data: data})
}

// writeError maps err to a status code. Internal failures are logged and
// their details withheld from the client.
func writeError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	code := appErrors.CodeOf(err)
	status := statusFor(code)

	message := "internal server error"
	var appErr *appErrors.AppError
	if status != http.StatusInternalServerError && errors.As(err, &appErr) {
		message = appErr.Message
	}

	reqLog := log.WithRequest(middleware.GetReqID(r.Context()), PartyIdFromContext(r.Context()))
	if status == http.StatusInternalServerError {
		reqLog.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		reqLog.Debug("request rejected", zap.String("path", r.URL.Path), zap.String("code", string(code)))
	}

	writeJSON(w, status, Response{Message: message})
}
