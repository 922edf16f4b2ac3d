package license

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"purepresenter/internal/security"
)

const testSecret = "test-secret"

// fixedNow is mid-morning local time so calendar-day math is unambiguous
var fixedNow = time.Date(2026, time.October, 17, 10, 0, 0, 0, time.Local)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestCodec(t *testing.T) *TokenCodec {
	t.Helper()
	signer, err := NewSigner("md5", testSecret)
	require.NoError(t, err)
	return NewTokenCodec(signer, fixedClock(fixedNow))
}

func newTestCipher(t *testing.T) *security.Codec {
	t.Helper()
	c, err := security.NewCodec(testSecret, "salt", security.KDFParams{N: 1024, R: 8, P: 1})
	require.NoError(t, err)
	return c
}

type testEnv struct {
	codec       *TokenCodec
	store       *Store
	revocations *RevocationList
	manager     *Manager
	dir         string
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	dir := t.TempDir()

	codec := newTestCodec(t)
	store := NewStore(filepath.Join(dir, "user", "license.dat"), newTestCipher(t), fixedClock(fixedNow), discardLogger())
	revocations := NewRevocationList(filepath.Join(dir, "license-blacklist.json"), discardLogger())

	opts = append([]Option{WithClock(fixedClock(fixedNow)), WithLogger(discardLogger())}, opts...)

	return &testEnv{
		codec:       codec,
		store:       store,
		revocations: revocations,
		manager:     NewManager(codec, store, revocations, opts...),
		dir:         dir,
	}
}

// issue returns a correctly signed key expiring days after fixedNow's date
func (e *testEnv) issue(t *testing.T, customer string, days int) string {
	t.Helper()
	key, err := e.codec.Issue(customer, fixedNow.AddDate(0, 0, days))
	require.NoError(t, err)
	return key
}
