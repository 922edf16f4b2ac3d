package testutil

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"purepresenter/internal/config"
	"purepresenter/internal/license"
)

func TestFixtures(t *testing.T) {
	cfg := LicenseConfig(t)
	assert.Equal(t, TestSecret, cfg.Secret)
	assert.NotEqual(t, cfg.StateFile, cfg.RevocationFile)

	signer, err := license.NewSigner(config.SignatureMD5, cfg.Secret)
	require.NoError(t, err)
	tokens := license.NewTokenCodec(signer, nil)

	key := IssueKey(t, tokens, "CHURCH123", 30)
	v, err := tokens.ParseAndVerify(key)
	require.NoError(t, err)
	assert.Equal(t, 30, v.DaysRemaining)

	forged := ForgedKey("CHURCH123", time.Now().AddDate(1, 0, 0))
	require.NoError(t, license.CheckFormat(forged))
	_, err = tokens.ParseAndVerify(forged)
	assert.Error(t, err)
	assert.True(t, strings.HasPrefix(forged, "CHURCH123-"))
}
