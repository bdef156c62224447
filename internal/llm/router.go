package llm

import (
	"fmt"
	"log"
)

// Router holds the registered providers and routes requests to an
// available one, falling back when the requested provider is down
type Router struct {
	providers   map[string]Provider
	order       []string // registration order, used for fallback iteration
	defaultName string
}

// NewRouter creates a Router with the given default provider name
func NewRouter(defaultName string) *Router {
	return &Router{
		providers:   make(map[string]Provider),
		defaultName: defaultName,
	}
}

// Register adds a provider to the registry. Registration order matters:
// fallback iterates providers in the order they were registered.
func (r *Router) Register(p Provider) {
	name := p.Name()
	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.providers[name] = p
	log.Printf("[Router] Registered provider: %s", name)
}

// DefaultProvider returns the configured default provider name
func (r *Router) DefaultProvider() string {
	return r.defaultName
}

// ProviderNames returns the registered provider names in registration order
func (r *Router) ProviderNames() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Status returns the availability of every registered provider
func (r *Router) Status() map[string]bool {
	status := make(map[string]bool, len(r.order))
	for _, name := range r.order {
		status[name] = r.providers[name].Available()
	}
	return status
}

// Analyze routes an analysis request. An empty providerName selects the
// default provider. The selected provider's identity is stamped on the
// result; a failed call is not retried with a different provider.
func (r *Router) Analyze(req *AnalysisRequest, providerName string) (*AnalysisResult, error) {
	provider, err := r.resolve(providerName)
	if err != nil {
		return nil, err
	}

	result, err := provider.Analyze(req)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", provider.Name(), err)
	}

	result.Provider = provider.Name()
	log.Printf("[Router] Analysis completed with provider: %s", provider.Name())
	return result, nil
}

// DraftReply routes a reply-drafting request with the same resolution
// rules as Analyze
func (r *Router) DraftReply(req *AnalysisRequest, providerName string) (string, error) {
	provider, err := r.resolve(providerName)
	if err != nil {
		return "", err
	}

	reply, err := provider.DraftReply(req)
	if err != nil {
		return "", fmt.Errorf("provider %s: %w", provider.Name(), err)
	}

	log.Printf("[Router] Reply drafted with provider: %s", provider.Name())
	return reply, nil
}

// IsProviderAvailable checks a single provider's availability
func (r *Router) IsProviderAvailable(name string) bool {
	provider, ok := r.providers[name]
	if !ok {
		return false
	}
	return provider.Available()
}

// resolve picks the provider to use for a request: the named one if it is
// available, otherwise the default, otherwise the first available provider
// in registration order
func (r *Router) resolve(providerName string) (Provider, error) {
	if providerName == "" {
		providerName = r.defaultName
	}

	provider, ok := r.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerName)
	}

	if provider.Available() {
		return provider, nil
	}

	log.Printf("[Router] Provider %s is not available, falling back", providerName)
	return r.nextAvailable()
}

// nextAvailable tries the default provider first, then iterates all
// registered providers in registration order
func (r *Router) nextAvailable() (Provider, error) {
	if def, ok := r.providers[r.defaultName]; ok && def.Available() {
		return def, nil
	}

	for _, name := range r.order {
		if p := r.providers[name]; p.Available() {
			return p, nil
		}
	}

	return nil, ErrNoProviderAvailable
}
