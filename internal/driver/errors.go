package driver

import (
	"errors"
	"fmt"
)

// FaultKind classifies a platform API failure. The outbound dispatcher
// treats a subset of kinds as recoverable send faults.
type FaultKind string

const (
	FaultInvalidOrMissingParameters FaultKind = "invalid_or_missing_parameters"
	FaultNotEnoughPermissions       FaultKind = "not_enough_permissions"
	FaultContentTooLarge            FaultKind = "content_too_large"
	FaultFeatureDisabled            FaultKind = "feature_disabled"
	FaultNoAccessToken              FaultKind = "no_access_token"
	FaultResourceNotFound           FaultKind = "resource_not_found"
	FaultUnknown                    FaultKind = "unknown"
)

// APIError is a platform API failure with its classified kind
type APIError struct {
	Kind       FaultKind
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("kchat api error (%s, status %d)", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("kchat api error (%s, status %d): %s", e.Kind, e.StatusCode, e.Message)
}

// AsAPIError unwraps err to an *APIError if one is in its chain
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsFault reports whether err is an APIError of one of the given kinds
func IsFault(err error, kinds ...FaultKind) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	for _, kind := range kinds {
		if apiErr.Kind == kind {
			return true
		}
	}
	return false
}

// kindForStatus maps an HTTP status code to a fault kind
func kindForStatus(status int) FaultKind {
	switch status {
	case 400:
		return FaultInvalidOrMissingParameters
	case 401:
		return FaultNoAccessToken
	case 403:
		return FaultNotEnoughPermissions
	case 404:
		return FaultResourceNotFound
	case 413:
		return FaultContentTooLarge
	case 501:
		return FaultFeatureDisabled
	default:
		return FaultUnknown
	}
}
