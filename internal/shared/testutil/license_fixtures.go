package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"purepresenter/internal/config"
	"purepresenter/internal/license"
)

// TestSecret signs every fixture key
const TestSecret = "test-secret"

// LicenseConfig returns a license configuration whose files live in a fresh
// temp dir. scrypt runs with N=1024 so tests stay fast.
func LicenseConfig(t *testing.T) config.LicenseConfig {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default().License
	cfg.Secret = TestSecret
	cfg.StateFile = filepath.Join(dir, "user", config.LicenseFileName)
	cfg.RevocationFile = filepath.Join(dir, "app", config.RevocationFileName)
	cfg.KDF = config.KDFConfig{N: 1024, R: 8, P: 1}
	cfg.WatchFiles = false
	cfg.WatchDebounce = 20 * time.Millisecond
	return cfg
}

// IssueKey returns a key for customer expiring days calendar days after now.
// Negative days give an expired key.
func IssueKey(t *testing.T, tokens *license.TokenCodec, customer string, days int) string {
	t.Helper()
	key, err := tokens.Issue(customer, time.Now().AddDate(0, 0, days))
	if err != nil {
		t.Fatalf("issue key for %s: %v", customer, err)
	}
	return key
}

// ForgedKey returns a well-formed key whose signature cannot verify
func ForgedKey(customer string, expiry time.Time) string {
	return customer + "-" + expiry.Format(license.ExpiryLayout) + "-0000000000000000"
}
