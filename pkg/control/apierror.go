// Package control exposes a thin JSON/HTTP control surface over the
// Aggregator, Strategy Engine, Risk Manager, and Execution Engine, plus a
// WebSocket hub that broadcasts live trading events.
package control

import (
	"net/http"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

func badInput(msg string) error     { return model.NewError(model.CodeBadInput, "%s", msg) }
func notFound(msg string) error     { return model.NewError(model.CodeNotFound, "%s", msg) }
func riskRejected(msg string) error { return model.NewError(model.CodeRiskRejected, "%s", msg) }
func conflict(msg string) error     { return model.NewError(model.CodeConflict, "%s", msg) }
func internal(msg string) error     { return model.NewError(model.CodeInternal, "%s", msg) }

// statusFor maps the shared error taxonomy (pkg/model.Code) to the HTTP
// status spec.md §6 names.
func statusFor(code model.Code) int {
	switch code {
	case model.CodeBadInput, model.CodeValidation:
		return http.StatusBadRequest
	case model.CodeAuthFailure:
		return http.StatusUnauthorized
	case model.CodeNotFound:
		return http.StatusNotFound
	case model.CodeConflict, model.CodeRiskRejected:
		return http.StatusConflict
	case model.CodeRateLimited:
		return http.StatusTooManyRequests
	case model.CodeUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
