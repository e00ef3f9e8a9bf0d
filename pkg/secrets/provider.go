package secrets

import "context"

// Provider returns a named secret as a flat key/value map. The ZivaCare client
// reads credential fields from it by their API names (clientId, clientSecret, ...).
type Provider interface {
	GetSecret(ctx context.Context, key string) (map[string]string, error)
}
