package core

import "errors"

// Error taxonomy shared by every component. Call sites wrap these with
// fmt.Errorf("...: %w", ErrX) and callers classify with errors.Is.
var (
	// ErrConfiguration: a required credential or setting is missing.
	ErrConfiguration = errors.New("configuration error")
	// ErrExtraction: the file is unreadable, unsupported or empty.
	ErrExtraction = errors.New("extraction error")
	// ErrStorage: a blob or row write failed.
	ErrStorage = errors.New("storage error")
	// ErrValidation: malformed input such as a domain, token or model JSON.
	ErrValidation = errors.New("validation error")
	// ErrUpstream: a hosted API returned a non-success response.
	ErrUpstream = errors.New("upstream error")
	// ErrPermission: the caller is not allowed to access the resource.
	ErrPermission = errors.New("permission denied")
	ErrNotFound   = errors.New("not found")
)
