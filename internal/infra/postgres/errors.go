package postgres

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"liver-quiz-service/internal/domain"
)

// sqlStateError is satisfied by pgdriver.Error.
type sqlStateError interface {
	error
	Field(k byte) string
}

var schemaStates = map[string]string{
	"42P01": "table " + tableResults + " does not exist",
	"42703": "a mapped column is missing from " + tableResults,
	"3F000": "schema does not exist",
}

var permissionStates = map[string]string{
	"42501": "insufficient privilege (check row-level security policies)",
	"28000": "invalid authorization",
	"28P01": "password authentication failed",
}

// classify turns a driver error into a StoreError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *domain.StoreError
	if errors.As(err, &se) {
		return se
	}

	var coded sqlStateError
	if errors.As(err, &coded) {
		state := coded.Field('C')
		detail := coded.Field('M')
		if hint, ok := schemaStates[state]; ok {
			return domain.NewStoreError(domain.KindSchema, op, hint+": "+detail, err)
		}
		if hint, ok := permissionStates[state]; ok {
			return domain.NewStoreError(domain.KindPermissionDenied, op, hint+": "+detail, err)
		}
		if strings.HasPrefix(state, "08") {
			return domain.NewStoreError(domain.KindNetwork, op, "connection exception: "+detail, err)
		}
		return domain.NewStoreError(domain.KindUnknown, op, detail, err)
	}

	if isNetwork(err) {
		return domain.NewStoreError(domain.KindNetwork, op, "", err)
	}
	return domain.NewStoreError(domain.KindUnknown, op, "", err)
}

func isNetwork(err error) bool {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr):
		return true
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return true
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return true
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return true
	}
	return false
}
