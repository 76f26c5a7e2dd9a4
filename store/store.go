package store

import (
	"log/slog"
	"net/http"

	"github.com/nilotpaul/meetsync/config"
)

// `InitStore` registers every supported provider on start-up. Providers whose
// client credentials are missing from the env are still registered, so their
// routes answer with a configuration error instead of a 404.
func InitStore(env config.EnvConfig, httpClient *http.Client) *ProviderRegistry {
	r := NewProviderRegistry()

	for name, spec := range ProviderSpecs() {
		client := env.OAuthClient(name)
		p := NewProvider(spec, client, httpClient)
		if !p.Configured() {
			slog.Warn("provider is not configured", "provider", name)
		}

		r.Register(p)
	}

	return r
}
