package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/pagination"
	"github.com/cwrk-planet/chat-relay/pkg/httputil"
	"github.com/cwrk-planet/chat-relay/pkg/logger"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrMemberNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrMemberAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrPasswordTooShort),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, pagination.ErrInvalidCursor):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status; unexpected errors are logged and hidden.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).ErrorContext(r.Context(), op, slog.Any("err", err))
		httputil.Error(w, status, "internal error")
		return
	}
	httputil.Error(w, status, err.Error())
}
