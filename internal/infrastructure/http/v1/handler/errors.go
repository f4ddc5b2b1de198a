package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/jaennil/guide_helper/backend/mosaic/internal/entity"
)

// statusFor maps domain errors onto HTTP status codes. ok is false for
// errors that should be reported as internal.
func statusFor(err error) (code int, ok bool) {
	var inputErr *entity.InputError
	if errors.As(err, &inputErr) {
		return http.StatusBadRequest, true
	}

	var assemblyErr *entity.AssemblyError
	if errors.As(err, &assemblyErr) {
		return http.StatusBadGateway, true
	}

	if fe, isFetch := entity.AsFetchError(err); isFetch {
		if fe.Kind == entity.FetchNotFound {
			return http.StatusNotFound, true
		}
		return http.StatusBadGateway, true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, true
	}

	return 0, false
}
