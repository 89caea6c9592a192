package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/siteledger/internal/domain/project"
	"github.com/rpggio/siteledger/internal/ledger"
	"github.com/rpggio/siteledger/internal/store"
)

// Error codes returned in APIError.Code.
const (
	CodeInvalidParams   = "INVALID_PARAMS"
	CodeMethodNotFound  = "METHOD_NOT_FOUND"
	CodeProjectNotFound = "PROJECT_NOT_FOUND"
	CodeDuplicateID     = "DUPLICATE_ID"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeTooLarge        = "TOO_LARGE"
	CodeRolledBack      = "ROLLED_BACK"
	CodeNotPersisted    = "NOT_PERSISTED"
)

var (
	// ErrUnknownMethod is returned by Handle for methods outside the operation set.
	ErrUnknownMethod = errors.New("unknown method")
	// ErrInvalidParams is returned when params fail to decode or validate.
	ErrInvalidParams = errors.New("invalid params")
)

// APIError represents an error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) MessageValue() string {
	return e.Message
}

func (e *APIError) DetailsValue() any {
	return e.Details
}

func (e *APIError) RecoveryHintValue() string {
	return e.RecoveryHint
}

// MapError maps domain errors to API error codes. It returns nil for errors
// it does not recognize.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, ErrUnknownMethod):
		return &APIError{Code: CodeMethodNotFound, Message: err.Error(), RecoveryHint: "Check the method name"}
	case errors.Is(err, ErrInvalidParams):
		return &APIError{Code: CodeInvalidParams, Message: err.Error(), RecoveryHint: "Fix the listed fields"}
	case errors.Is(err, project.ErrProjectNotFound):
		return &APIError{Code: CodeProjectNotFound, Message: "project not found", RecoveryHint: "Check ID spelling"}
	case errors.Is(err, project.ErrDuplicateID):
		return &APIError{Code: CodeDuplicateID, Message: "id already in use", RecoveryHint: "Omit the id to have one generated"}
	case errors.Is(err, project.ErrInvalidInput):
		return &APIError{Code: CodeInvalidInput, Message: err.Error()}
	case errors.Is(err, store.ErrTooLarge):
		return &APIError{Code: CodeTooLarge, Message: "collection exceeds the storage limit", RecoveryHint: "Delete old projects"}
	case errors.Is(err, ledger.ErrRolledBack):
		return &APIError{Code: CodeRolledBack, Message: "save failed, restored the previous collection", RecoveryHint: "Retry the change"}
	case errors.Is(err, ledger.ErrNotPersisted):
		return &APIError{Code: CodeNotPersisted, Message: "change applied but not saved", RecoveryHint: "Check server storage"}
	default:
		return nil
	}
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
