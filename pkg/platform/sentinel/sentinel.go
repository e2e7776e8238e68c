package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Gateways and stores return these
// (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about upstream resources, not validation
// failures:
// - ErrNotFound: record or user does not exist upstream
// - ErrUnavailable: upstream store or service unreachable
// - ErrRejected: upstream refused the write
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
	ErrRejected    = errors.New("rejected")
)
