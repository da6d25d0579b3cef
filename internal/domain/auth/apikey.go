package auth

import "context"

// APIKeyInfo identifies a store-admin API key by its HMAC hash.
type APIKeyInfo struct {
	ID      string
	StoreID string
	KeyHash string
	Name    string
}

// Repository provides lookup of active API keys by their HMAC-SHA256 hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
