package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, caches, and registry
// clients return these (optionally wrapped) so services can translate them
// into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store or origin registry
// - ErrExpired: cached value has passed its TTL
// - ErrNotReady: bulk cache has not completed a warm-up yet
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: origin registry or backend temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrNotReady     = errors.New("not ready")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
