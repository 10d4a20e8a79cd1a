package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"liver-quiz-service/internal/domain"
	"liver-quiz-service/internal/i18n"
)

// errorBody is the JSON shape of every failed request and failed section.
type errorBody struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func statusFor(err error) int {
	var storeErr *domain.StoreError
	switch {
	case errors.Is(err, domain.ErrInvalidOption):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrWrongState), errors.Is(err, domain.ErrNothingToRetry):
		return http.StatusConflict
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrQuizNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidQuiz):
		return http.StatusUnprocessableEntity
	case errors.As(err, &storeErr):
		return storeStatus(storeErr.Kind)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func storeStatus(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNetwork:
		return http.StatusServiceUnavailable
	case domain.KindPermissionDenied:
		return http.StatusForbidden
	case domain.KindSchema:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func errorPayload(locale string, err error) errorBody {
	var storeErr *domain.StoreError
	if errors.As(err, &storeErr) {
		return storeErrorPayload(locale, storeErr)
	}
	if errors.Is(err, domain.ErrNotAuthenticated) {
		return errorBody{Error: i18n.T(locale, "auth.login_required"), Kind: "not_authenticated"}
	}
	return errorBody{Error: err.Error()}
}

func storeErrorPayload(locale string, err *domain.StoreError) errorBody {
	return errorBody{Error: i18n.ErrorMessage(locale, err.Kind), Kind: string(err.Kind), Detail: err.Message}
}

func respondError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), errorPayload(localeFrom(c), err))
}
