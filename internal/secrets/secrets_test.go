package secrets

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func testKey() []byte {
	return bytes.Repeat([]byte("k"), 32)
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "secrets.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestReference(t *testing.T) {
	assert.Equal(t, "secret-openai-api-key", Reference("openai"))
	assert.Equal(t, "secret-anthropic-api-key", Reference("anthropic"))
}

func TestAESRoundTrip(t *testing.T) {
	enc, err := NewAESWithKey(testKey())
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt("sk-super-secret")
	require.NoError(t, err)
	assert.NotEqual(t, "sk-super-secret", ciphertext)

	plaintext, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "sk-super-secret", plaintext)
}

func TestAESNoncesDiffer(t *testing.T) {
	enc, err := NewAESWithKey(testKey())
	require.NoError(t, err)

	c1, err := enc.Encrypt("same value")
	require.NoError(t, err)
	c2, err := enc.Encrypt("same value")
	require.NoError(t, err)
	assert.NotEqual(t, c1, c2)
}

func TestAESWrongKeyFails(t *testing.T) {
	enc, err := NewAESWithKey(testKey())
	require.NoError(t, err)
	other, err := NewAESWithKey(bytes.Repeat([]byte("x"), 32))
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt("value")
	require.NoError(t, err)

	_, err = other.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestAESKeyLength(t *testing.T) {
	_, err := NewAESWithKey([]byte("short"))
	assert.Error(t, err)
}

func TestEnvStore(t *testing.T) {
	t.Setenv("SECRET_OPENAI_API_KEY", "sk-from-env")

	store := &EnvStore{}
	v, err := store.Get(context.Background(), "secret-openai-api-key")
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", v)

	_, err = store.Get(context.Background(), "secret-missing-api-key")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	enc, err := NewAESWithKey(testKey())
	require.NoError(t, err)
	store, err := NewSQLiteStore(setupTestDB(t), enc)
	require.NoError(t, err)

	ctx := context.Background()
	ref := Reference("openai")

	_, err = store.Get(ctx, ref)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, ref, "sk-original"))
	v, err := store.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "sk-original", v)

	// Upsert replaces.
	require.NoError(t, store.Put(ctx, ref, "sk-rotated"))
	v, err = store.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "sk-rotated", v)

	// Stored value is encrypted at rest.
	var raw string
	require.NoError(t, store.db.QueryRow(`SELECT value FROM secrets WHERE reference = ?`, ref).Scan(&raw))
	assert.NotEqual(t, "sk-rotated", raw)

	require.NoError(t, store.Delete(ctx, ref))
	_, err = store.Get(ctx, ref)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChainFirstHitWins(t *testing.T) {
	enc, err := NewAESWithKey(testKey())
	require.NoError(t, err)
	sqlStore, err := NewSQLiteStore(setupTestDB(t), enc)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sqlStore.Put(ctx, "secret-anthropic-api-key", "sk-from-db"))
	t.Setenv("SECRET_ANTHROPIC_API_KEY", "sk-from-env")

	chain := Chain{&EnvStore{}, sqlStore}

	v, err := chain.Get(ctx, "secret-anthropic-api-key")
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", v, "env store is consulted first")

	// Missing in env falls through to the database.
	require.NoError(t, sqlStore.Put(ctx, "secret-openai-api-key", "sk-db-only"))
	v, err = chain.Get(ctx, "secret-openai-api-key")
	require.NoError(t, err)
	assert.Equal(t, "sk-db-only", v)

	_, err = chain.Get(ctx, "secret-nowhere-api-key")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolverCaches(t *testing.T) {
	calls := 0
	store := storeFunc(func(_ context.Context, ref string) (string, error) {
		calls++
		return "sk-value", nil
	})

	r, err := NewResolver(store, time.Minute)
	require.NoError(t, err)
	t.Cleanup(r.Close)

	ctx := context.Background()
	v, err := r.Get(ctx, "secret-openai-api-key")
	require.NoError(t, err)
	assert.Equal(t, "sk-value", v)
	assert.Equal(t, 1, calls)

	// Ristretto admits asynchronously; wait for the entry to land.
	r.cache.Wait()

	_, err = r.Get(ctx, "secret-openai-api-key")
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second lookup is served from cache")

	r.Invalidate("secret-openai-api-key")
	_, err = r.Get(ctx, "secret-openai-api-key")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

// storeFunc adapts a function to the Store interface.
type storeFunc func(ctx context.Context, reference string) (string, error)

func (f storeFunc) Get(ctx context.Context, reference string) (string, error) {
	return f(ctx, reference)
}
