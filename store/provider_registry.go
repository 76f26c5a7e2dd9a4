package store

import (
	"fmt"
	"sort"

	"github.com/nilotpaul/meetsync/types"
	"github.com/nilotpaul/meetsync/util"
)

// `ProviderRegistry` holds every integration provider by name.
type ProviderRegistry struct {
	Providers map[string]types.OAuthProvider
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		Providers: make(map[string]types.OAuthProvider),
	}
}

// Adds a provider in the `Providers` map, replacing one with the same name.
func (r *ProviderRegistry) Register(p types.OAuthProvider) {
	r.Providers[p.Name()] = p
}

// Retrieves a provider from the `Providers` map.
func (r *ProviderRegistry) GetProvider(providerName string) (types.OAuthProvider, error) {
	p, exists := r.Providers[providerName]
	if !exists {
		return nil, fmt.Errorf("%w: %q", util.ErrProviderNotFound, providerName)
	}

	return p, nil
}

// Names lists the registered providers in alphabetical order.
func (r *ProviderRegistry) Names() []string {
	names := make([]string, 0, len(r.Providers))
	for name := range r.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
