package registry

import "errors"

var (
	ErrParse             = errors.New("parse registry")
	ErrInvalidEntry      = errors.New("invalid application entry")
	ErrMissingField      = errors.New("missing required field")
	ErrInvalidSelector   = errors.New("invalid label selector")
	ErrInvalidSeverity   = errors.New("invalid policy severity")
	ErrInvalidTier       = errors.New("invalid project tier")
	ErrDuplicateName     = errors.New("duplicate application name")
	ErrDuplicateSelector = errors.New("duplicate namespace and label selector")
	ErrNotLoaded         = errors.New("registry not loaded")
	ErrFetch             = errors.New("fetch registry source")
)
