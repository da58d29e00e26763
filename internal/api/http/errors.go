package httpapi

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/warming-map/internal/chart"
	"github.com/i474232898/warming-map/internal/climate"
	"github.com/i474232898/warming-map/internal/dataset"
	"github.com/i474232898/warming-map/internal/policy"
	"github.com/i474232898/warming-map/internal/providers"
	"github.com/i474232898/warming-map/internal/quiz"
	"github.com/i474232898/warming-map/internal/store"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, climate.ErrInvalidSelector),
		errors.Is(err, climate.ErrUnknownPalette),
		errors.Is(err, quiz.ErrInvalidCount),
		errors.Is(err, quiz.ErrInvalidOption):
		return fiber.StatusBadRequest
	case errors.Is(err, climate.ErrNoData),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, policy.ErrUnknownCountry),
		errors.Is(err, policy.ErrMissingPolicy),
		errors.Is(err, chart.ErrEmptySeries):
		return fiber.StatusNotFound
	case errors.Is(err, quiz.ErrNotStarted),
		errors.Is(err, quiz.ErrFinished),
		errors.Is(err, quiz.ErrAlreadyAnswered),
		errors.Is(err, quiz.ErrNotAnswered):
		return fiber.StatusConflict
	case errors.Is(err, climate.ErrEmptyField):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, providers.ErrRateLimited),
		errors.Is(err, providers.ErrServerError),
		errors.Is(err, providers.ErrUnexpected),
		errors.Is(err, providers.ErrCircuitOpen):
		return fiber.StatusBadGateway
	case errors.Is(err, dataset.ErrMissingFiles):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	}
	return fiber.StatusInternalServerError
}

// reason labels a failure for the compute_errors metric.
func reason(status int) string {
	switch {
	case status == fiber.StatusNotFound:
		return "no_data"
	case status < 500:
		return "invalid"
	}
	return "internal"
}

// httpError converts err into a *fiber.Error. Internal errors are logged and
// replaced with a generic message.
func (h *handlers) httpError(err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		h.Logger.Error("request failed", slog.Any("error", err))
		return fiber.NewError(status, "internal error")
	}
	return fiber.NewError(status, err.Error())
}

// computeError is httpError for field, render and point failures, counted per
// operation.
func (h *handlers) computeError(operation string, err error) error {
	h.Metrics.ComputeErrors.WithLabelValues(operation, reason(statusFor(err))).Inc()
	return h.httpError(err)
}

func badRequest(err error) error {
	return fiber.NewError(fiber.StatusBadRequest, err.Error())
}
