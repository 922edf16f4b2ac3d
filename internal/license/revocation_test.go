package license

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_IsRevoked(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RevokeKey("CHURCH123-20261019-133B6AA64143459D", "refund issued", fixedNow))
	require.NoError(t, reg.RevokeKey("GRACE0001-20261019-0000000000000000", "", fixedNow))
	require.NoError(t, reg.RevokeCustomer("leaked01", "key shared online", fixedNow))
	require.NoError(t, reg.RevokeCustomer("CHURCH123", "", fixedNow))

	tests := []struct {
		name    string
		token   string
		revoked bool
		scope   string
		message string
	}{
		{
			name:    "key match with reason",
			token:   "CHURCH123-20261019-133B6AA64143459D",
			revoked: true,
			scope:   "key",
			message: "This license key has been revoked: refund issued",
		},
		{
			name:    "key match ignores case and whitespace",
			token:   "  grace0001-20261019-0000000000000000 ",
			revoked: true,
			scope:   "key",
			message: MsgKeyRevoked,
		},
		{
			name:    "customer match on any key",
			token:   "LEAKED01-20991231-FFFFFFFFFFFFFFFF",
			revoked: true,
			scope:   "customer",
			message: "All licenses for this customer have been revoked: key shared online",
		},
		{
			name:    "customer match on malformed key",
			token:   "leaked01-garbage",
			revoked: true,
			scope:   "customer",
			message: "All licenses for this customer have been revoked: key shared online",
		},
		{
			name:    "key match wins over customer match",
			token:   "CHURCH123-20261019-133B6AA64143459D",
			revoked: true,
			scope:   "key",
			message: "This license key has been revoked: refund issued",
		},
		{
			name:    "other key of revoked customer without reason",
			token:   "CHURCH123-20271019-AAAAAAAAAAAAAAAA",
			revoked: true,
			scope:   "customer",
			message: MsgCustomerRevoked,
		},
		{
			name:  "not revoked",
			token: "GRACE0002-20261019-0000000000000000",
		},
		{
			name:  "prefix of a revoked customer is not revoked",
			token: "LEAKED012-20261019-0000000000000000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rev := reg.IsRevoked(tt.token)
			assert.Equal(t, tt.revoked, rev.Revoked)
			assert.Equal(t, tt.scope, rev.Scope)
			assert.Equal(t, tt.message, rev.Message)
		})
	}
}

func TestRegistry_NilIsEmpty(t *testing.T) {
	var reg *Registry
	assert.False(t, reg.IsRevoked("CHURCH123-20261019-133B6AA64143459D").Revoked)
	assert.Zero(t, reg.Len())
}

func TestRegistry_Mutations(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.RevokeKey("church123-20261019-133b6aa64143459d", " refund ", fixedNow))
	assert.Equal(t, "CHURCH123-20261019-133B6AA64143459D", reg.RevokedKeys[0].Key)
	assert.Equal(t, "CHURCH123", reg.RevokedKeys[0].Customer)
	assert.Equal(t, "refund", reg.RevokedKeys[0].Reason)
	assert.NotEmpty(t, reg.RevokedKeys[0].RevokedDate)

	err := reg.RevokeKey("CHURCH123-20261019-133B6AA64143459D", "", fixedNow)
	assert.ErrorIs(t, err, ErrAlreadyRevoked)

	require.NoError(t, reg.RevokeCustomer("grace01", "", fixedNow))
	assert.ErrorIs(t, reg.RevokeCustomer("GRACE01", "", fixedNow), ErrAlreadyRevoked)
	assert.Equal(t, 2, reg.Len())

	require.NoError(t, reg.UnrevokeKey("church123-20261019-133B6AA64143459D"))
	assert.ErrorIs(t, reg.UnrevokeKey("CHURCH123-20261019-133B6AA64143459D"), ErrNotRevoked)

	require.NoError(t, reg.UnrevokeCustomer("Grace01"))
	assert.ErrorIs(t, reg.UnrevokeCustomer("GRACE01"), ErrNotRevoked)
	assert.Zero(t, reg.Len())
}

func TestRevocationList_LoadMissingOrCorrupt(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	missing := NewRevocationList(filepath.Join(dir, "absent.json"), discardLogger())
	reg := missing.Load(ctx)
	require.NotNil(t, reg)
	assert.Zero(t, reg.Len())

	corruptPath := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corruptPath, []byte("{not json"), 0644))
	reg = NewRevocationList(corruptPath, discardLogger()).Load(ctx)
	require.NotNil(t, reg)
	assert.Zero(t, reg.Len())

	// a directory where the file should be cannot be read either
	reg = NewRevocationList(dir, discardLogger()).Load(ctx)
	assert.Zero(t, reg.Len())
}

func TestRevocationList_ReadsAdminToolFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "license-blacklist.json")
	content := `{
  "revokedKeys": [
    {
      "key": "CHURCH123-20261019-133B6AA64143459D",
      "customer": "CHURCH123",
      "reason": "Refund",
      "revokedDate": "2025-03-01T12:00:00.000Z"
    }
  ],
  "revokedCustomers": [
    {
      "customer": "LEAKED01",
      "reason": "",
      "revokedDate": "2025-03-02T12:00:00.000Z"
    }
  ],
  "lastUpdated": null
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	reg := NewRevocationList(path, discardLogger()).Load(context.Background())
	assert.Len(t, reg.RevokedKeys, 1)
	assert.Len(t, reg.RevokedCustomers, 1)
	assert.Nil(t, reg.LastUpdated)
	assert.True(t, reg.IsRevoked("LEAKED01-20261019-133B6AA64143459D").Revoked)
}

func TestRevocationList_SaveWithCopies(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	primary := filepath.Join(dir, "license-blacklist.json")
	distribution := filepath.Join(dir, "app", "license-blacklist.json")

	list := NewRevocationList(primary, discardLogger())
	reg := list.Load(ctx)
	require.NoError(t, reg.RevokeCustomer("LEAKED01", "shared", fixedNow))
	require.NoError(t, list.Save(ctx, reg, fixedNow, distribution))

	for _, path := range []string{primary, distribution} {
		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var raw map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &raw))
		assert.Contains(t, raw, "revokedKeys")
		assert.Contains(t, raw, "revokedCustomers")
		assert.Equal(t, fixedNow.UTC().Format("2006-01-02T15:04:05Z07:00"), raw["lastUpdated"])
	}

	reloaded := list.Load(ctx)
	assert.True(t, reloaded.IsRevoked("LEAKED01-20261019-133B6AA64143459D").Revoked)
	assert.Empty(t, reloaded.RevokedKeys)
	require.NotNil(t, reloaded.LastUpdated)
}
