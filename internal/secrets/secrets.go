// Package secrets resolves provider credentials by logical reference name.
//
// References follow the convention "secret-<provider>-api-key"
// (e.g. "secret-openai-api-key"). The core never sees where a secret
// actually lives; it only consumes Store.Get.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotFound is returned when a reference resolves to nothing.
var ErrNotFound = errors.New("secret not found")

// Store resolves a secret value by reference name.
type Store interface {
	Get(ctx context.Context, reference string) (string, error)
}

// Reference builds the canonical reference name for a provider's API key.
func Reference(provider string) string {
	return "secret-" + provider + "-api-key"
}

// Chain consults stores in order and returns the first hit. Only a
// not-found miss moves on to the next store; real failures stop the chain.
type Chain []Store

var _ Store = (Chain)(nil)

// Get resolves the reference through the chain.
func (c Chain) Get(ctx context.Context, reference string) (string, error) {
	for _, s := range c {
		v, err := s.Get(ctx, reference)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, reference)
}

// EnvStore resolves secrets from environment variables. The reference
// "secret-openai-api-key" maps to SECRET_OPENAI_API_KEY.
type EnvStore struct{}

var _ Store = (*EnvStore)(nil)

// Get looks up the env var derived from the reference.
func (s *EnvStore) Get(_ context.Context, reference string) (string, error) {
	name := strings.ToUpper(strings.ReplaceAll(reference, "-", "_"))
	if v := os.Getenv(name); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, reference)
}
