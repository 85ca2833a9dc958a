package k8s

import (
	"errors"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

var (
	errUnsupportedKind = errors.New("unsupported workload kind")
	errMissingKey      = errors.New("configmap key not found")
)

// NotFoundError represents a "not found" case that callers usually treat as success.
type NotFoundError struct{}

func (e *NotFoundError) Error() string {
	return "not found"
}

func (e *NotFoundError) IsNotFound() {}

var errNotFound = &NotFoundError{}

// GoneError represents an expired resource version; the caller must relist.
type GoneError struct{}

func (e *GoneError) Error() string {
	return "resource version expired"
}

func (e *GoneError) IsGone() {}

var errGone = &GoneError{}

// AlreadyExistsError represents a create conflict on the object name.
type AlreadyExistsError struct{}

func (e *AlreadyExistsError) Error() string {
	return "already exists"
}

func (e *AlreadyExistsError) IsAlreadyExists() {}

var errAlreadyExists = &AlreadyExistsError{}

// InvalidError represents an object rejected by API validation. Retrying will not help.
type InvalidError struct{}

func (e *InvalidError) Error() string {
	return "rejected by validation"
}

func (e *InvalidError) IsInvalid() {}

var errInvalid = &InvalidError{}

// wrapAPIError attaches the marker matching the API status to err.
func wrapAPIError(op string, err error) error {
	switch {
	case apierrors.IsNotFound(err):
		return fmt.Errorf("%s: %w: %w", op, errNotFound, err)
	case apierrors.IsGone(err), apierrors.IsResourceExpired(err):
		return fmt.Errorf("%s: %w: %w", op, errGone, err)
	case apierrors.IsAlreadyExists(err):
		return fmt.Errorf("%s: %w: %w", op, errAlreadyExists, err)
	case apierrors.IsInvalid(err), apierrors.IsBadRequest(err):
		return fmt.Errorf("%s: %w: %w", op, errInvalid, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
