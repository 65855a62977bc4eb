package domain

import "errors"

var (
	// ErrIndexUnavailable signals that the persisted index is corrupt or
	// unreadable and the rebuild attempt also failed. A normal "don't know"
	// outcome is never reported through this error.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrBackendUnavailable signals that the generative or embedding backend
	// is unreachable. Distinct from a content answer; the caller decides
	// whether to degrade or surface it.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrEmptyExpression signals that no mathematical expression could be
	// extracted from free text.
	ErrEmptyExpression = errors.New("empty expression")
)
