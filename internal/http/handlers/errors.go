package handlers

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/Lamprichauns/lamp-os/internal/errors"
)

// toHumaError maps domain errors onto HTTP status codes.
func toHumaError(err error) error {
	switch {
	case errors.IsNotFound(err):
		return huma.Error404NotFound(err.Error())
	case errors.IsInvalidInput(err), errors.IsMalformed(err):
		return huma.Error400BadRequest(err.Error())
	default:
		return huma.Error500InternalServerError(err.Error())
	}
}
