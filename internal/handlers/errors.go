package handlers

import (
	"errors"
	"net/http"

	"qgo-dispatch/internal/dispatch"
	"qgo-dispatch/internal/store"
	"qgo-dispatch/pkg/utils"

	log "github.com/sirupsen/logrus"
)

// statusFor maps domain and store errors onto HTTP status codes
func statusFor(err error) int {
	var ve *dispatch.ValidationError
	var partial *dispatch.PartialUpdateError

	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &partial):
		return http.StatusBadGateway
	case errors.Is(err, dispatch.ErrJobNotFound),
		errors.Is(err, dispatch.ErrDriverNotFound),
		errors.Is(err, dispatch.ErrReceiptNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dispatch.ErrInvalidTransition),
		errors.Is(err, dispatch.ErrDriverExists):
		return http.StatusConflict
	case errors.Is(err, dispatch.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, store.ErrUnconfigured):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

// respondErr logs err and sends it with its mapped status
func respondErr(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	entry := log.WithFields(log.Fields{"op": op, "status": status})
	if status >= http.StatusInternalServerError {
		entry.Printf("❌ %s failed: %v", op, err)
	} else {
		entry.Printf("⚠️  %s rejected: %v", op, err)
	}

	if errors.Is(err, store.ErrUnconfigured) {
		utils.RespondError(w, status, "Remote store is not configured; showing demo data")
		return
	}
	utils.RespondError(w, status, err.Error())
}
