package httpapi

import (
	"errors"
	"net/http"

	"voice-agent-platform/internal/agents"
	"voice-agent-platform/internal/calls"
	"voice-agent-platform/internal/numbers"
	"voice-agent-platform/internal/objectstore"
	"voice-agent-platform/internal/reporting"
	"voice-agent-platform/internal/subscriptions"
	"voice-agent-platform/internal/telephony"
	"voice-agent-platform/internal/voices"
	"voice-agent-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Stable error codes returned in the "code" field.
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeValidation           = "VALIDATION_FAILED"
	CodeNotFound             = "NOT_FOUND"
	CodeNoNumbersAvailable   = "NO_NUMBERS_AVAILABLE"
	CodeNumberUnavailable    = "NUMBER_UNAVAILABLE"
	CodeAlreadyAssigned      = "ALREADY_ASSIGNED"
	CodeProvisionBusy        = "PROVISION_BUSY"
	CodeNoSubscription       = "NO_SUBSCRIPTION"
	CodeProviderError        = "PROVIDER_ERROR"
	CodePersistAfterPurchase = "PERSIST_AFTER_PURCHASE"
	CodeInternal             = "INTERNAL"
)

type errorBody struct {
	Error     string              `json:"error"`
	Code      string              `json:"code"`
	Retryable bool                `json:"retryable,omitempty"`
	Fields    []agents.FieldError `json:"fields,omitempty"`
}

// classify maps a service error to an HTTP status and response body.
func classify(err error) (int, errorBody) {
	var (
		verr *agents.ValidationError
		perr *telephony.ProviderError
		cerr *voices.CatalogError
		serr *objectstore.StorageError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorBody{Error: "validation failed", Code: CodeValidation, Fields: verr.Fields}
	case errors.Is(err, telephony.ErrInvalidAreaCode),
		errors.Is(err, telephony.ErrInvalidPhoneNumber),
		errors.Is(err, agents.ErrUnknownVoice),
		errors.Is(err, agents.ErrVoiceLanguageMismatch),
		errors.Is(err, numbers.ErrUnknownAgent),
		errors.Is(err, reporting.ErrInvalidRequest),
		errors.Is(err, calls.ErrPageOutOfRange):
		return http.StatusBadRequest, errorBody{Error: err.Error(), Code: CodeInvalidRequest}

	case errors.Is(err, telephony.ErrNoNumbersAvailable):
		return http.StatusNotFound, errorBody{Error: err.Error(), Code: CodeNoNumbersAvailable, Retryable: true}
	case errors.Is(err, subscriptions.ErrNoSubscription):
		return http.StatusNotFound, errorBody{Error: err.Error(), Code: CodeNoSubscription}
	case errors.Is(err, agents.ErrNotFound),
		errors.Is(err, numbers.ErrNotFound),
		errors.Is(err, voices.ErrNotFound),
		errors.Is(err, calls.ErrNotFound),
		errors.Is(err, objectstore.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: err.Error(), Code: CodeNotFound}

	case errors.Is(err, telephony.ErrNumberUnavailable):
		return http.StatusConflict, errorBody{Error: err.Error(), Code: CodeNumberUnavailable, Retryable: true}
	case errors.Is(err, numbers.ErrAlreadyAssigned):
		return http.StatusConflict, errorBody{Error: err.Error(), Code: CodeAlreadyAssigned}
	case errors.Is(err, numbers.ErrProvisionBusy):
		return http.StatusConflict, errorBody{Error: err.Error(), Code: CodeProvisionBusy, Retryable: true}

	case errors.Is(err, numbers.ErrPersistAfterPurchase):
		return http.StatusInternalServerError, errorBody{Error: err.Error(), Code: CodePersistAfterPurchase}

	case errors.As(err, &perr):
		return http.StatusBadGateway, errorBody{Error: "telephony provider request failed", Code: CodeProviderError}
	case errors.As(err, &cerr):
		return http.StatusBadGateway, errorBody{Error: "voice catalog request failed", Code: CodeProviderError}
	case errors.As(err, &serr):
		return http.StatusBadGateway, errorBody{Error: "object storage request failed", Code: CodeProviderError}
	}
	return http.StatusInternalServerError, errorBody{Error: "internal error", Code: CodeInternal}
}

// writeError logs server-side failures and writes the mapped response.
func writeError(c *gin.Context, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		logger.FromGin(c).Error("request failed", "status", status, "code", body.Code, "err", err)
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: msg, Code: CodeInvalidRequest})
}
