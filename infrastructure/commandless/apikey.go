package commandless

import (
	"errors"
	"strings"
)

var ErrInvalidKeyFormat = errors.New("invalid api key format, expected <id>:<secret>")

// APIKey is a Commandless key split into its public id and secret part.
type APIKey struct {
	ID     string
	Secret string
}

// ParseAPIKey splits a key of the form id:secret.
// Returns ErrInvalidKeyFormat if either part is missing or contains whitespace.
func ParseAPIKey(key string) (APIKey, error) {
	id, secret, found := strings.Cut(strings.TrimSpace(key), ":")
	if !found || id == "" || secret == "" {
		return APIKey{}, ErrInvalidKeyFormat
	}
	if strings.ContainsAny(id, " \t\r\n") || strings.ContainsAny(secret, " \t\r\n") {
		return APIKey{}, ErrInvalidKeyFormat
	}
	return APIKey{ID: id, Secret: secret}, nil
}

func (k APIKey) String() string {
	return k.ID + ":" + k.Secret
}
