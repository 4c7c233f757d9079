package proxy

import (
	"context"

	"github.com/x402gateway/gateway/internal/secretstore"
	"github.com/x402gateway/gateway/internal/storage"
)

// secretLookup adapts storage.Store.GetSecret into the secretstore.Lookup
// authheader.Build expects, scoped to a single tenant.
func (p *Pipeline) secretLookup(ctx context.Context, tenantID string) secretstore.Lookup {
	return func(name string) (secretstore.Sealed, bool) {
		secret, err := p.store.GetSecret(ctx, tenantID, name)
		if err != nil {
			return secretstore.Sealed{}, false
		}
		return secretstore.Sealed{Ciphertext: secret.Ciphertext, Nonce: secret.Nonce}, true
	}
}
