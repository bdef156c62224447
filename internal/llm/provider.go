package llm

import (
	"errors"
)

var (
	// ErrProviderNotFound indicates the named provider is not registered
	ErrProviderNotFound = errors.New("provider not found")
	// ErrNoProviderAvailable indicates no registered provider passed its availability check
	ErrNoProviderAvailable = errors.New("no provider available")
	// ErrAPICallFailed indicates the provider backend call failed
	ErrAPICallFailed = errors.New("provider API call failed")
	// ErrInvalidResponse indicates an invalid response from the provider backend
	ErrInvalidResponse = errors.New("invalid provider response")
)

// Provider is a pluggable text-analysis backend
type Provider interface {
	// Name returns the registry name of the provider
	Name() string
	// Available reports whether the provider can take requests. This is a
	// fast local probe (credential presence), not a network round trip.
	Available() bool
	// Analyze classifies a message and drafts a candidate reply
	Analyze(req *AnalysisRequest) (*AnalysisResult, error)
	// DraftReply generates only a reply body for a message
	DraftReply(req *AnalysisRequest) (string, error)
}
