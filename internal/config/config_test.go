package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setPathEnv pins the license paths so tests never touch the real user dir
func setPathEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PRESENTER_LICENSE_STATE_FILE", filepath.Join(dir, "license.dat"))
	t.Setenv("PRESENTER_LICENSE_REVOCATION_FILE", filepath.Join(dir, "license-blacklist.json"))
	return dir
}

func TestLoadFrom(t *testing.T) {
	tests := []struct {
		name        string
		setupEnv    func(t *testing.T)
		fileContent string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults with no env vars or file",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 7420, cfg.Server.Port)
				assert.Equal(t, DefaultHTTPTimeout, cfg.Server.ReadTimeout)
				assert.Equal(t, DefaultLicenseSecret, cfg.License.Secret)
				assert.Equal(t, DefaultKDFSalt, cfg.License.Salt)
				assert.Equal(t, SignatureMD5, cfg.License.SignatureAlgorithm)
				assert.Equal(t, 7, cfg.License.ExpiringSoonDays)
				assert.Equal(t, 16384, cfg.License.KDF.N)
				assert.True(t, cfg.Security.RateLimit.Enabled)
				assert.Equal(t, "json", cfg.Logging.Format)
			},
		},
		{
			name: "env vars override defaults",
			setupEnv: func(t *testing.T) {
				t.Setenv("PRESENTER_SERVER_PORT", "9100")
				t.Setenv("PRESENTER_LICENSE_SECRET", "throwaway-secret")
				t.Setenv("PRESENTER_LICENSE_SIGNATURE_ALGORITHM", "hmac-sha256")
				t.Setenv("PRESENTER_LICENSE_EXPIRING_SOON_DAYS", "14")
				t.Setenv("PRESENTER_LICENSE_KDF_N", "1024")
				t.Setenv("PRESENTER_LOGGING_LEVEL", "debug")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9100, cfg.Server.Port)
				assert.Equal(t, "throwaway-secret", cfg.License.Secret)
				assert.Equal(t, SignatureHMACSHA256, cfg.License.SignatureAlgorithm)
				assert.Equal(t, 14, cfg.License.ExpiringSoonDays)
				assert.Equal(t, 1024, cfg.License.KDF.N)
				assert.Equal(t, "debug", cfg.Logging.Level)
			},
		},
		{
			name: "file values apply and env wins over file",
			fileContent: `
server:
  port: 8111
  read_timeout: 5s
license:
  salt: file-salt
  expiring_soon_days: 3
logging:
  level: warn
`,
			setupEnv: func(t *testing.T) {
				t.Setenv("PRESENTER_LICENSE_EXPIRING_SOON_DAYS", "10")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8111, cfg.Server.Port)
				assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "file-salt", cfg.License.Salt)
				assert.Equal(t, 10, cfg.License.ExpiringSoonDays)
				assert.Equal(t, "warn", cfg.Logging.Level)
				// untouched defaults survive the overlay
				assert.Equal(t, DefaultLicenseSecret, cfg.License.Secret)
			},
		},
		{
			name: "unknown signature algorithm",
			setupEnv: func(t *testing.T) {
				t.Setenv("PRESENTER_LICENSE_SIGNATURE_ALGORITHM", "rsa")
			},
			wantErr: true,
		},
		{
			name: "empty secret rejected",
			fileContent: `
license:
  secret: ""
`,
			wantErr: true,
		},
		{
			name: "invalid port",
			setupEnv: func(t *testing.T) {
				t.Setenv("PRESENTER_SERVER_PORT", "70000")
			},
			wantErr: true,
		},
		{
			name: "kdf n not a power of two",
			setupEnv: func(t *testing.T) {
				t.Setenv("PRESENTER_LICENSE_KDF_N", "1000")
			},
			wantErr: true,
		},
		{
			name: "malformed env value",
			setupEnv: func(t *testing.T) {
				t.Setenv("PRESENTER_SERVER_PORT", "not-a-number")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := setPathEnv(t)
			if tt.setupEnv != nil {
				tt.setupEnv(t)
			}

			configFile := ""
			if tt.fileContent != "" {
				configFile = filepath.Join(dir, "presenter.yaml")
				require.NoError(t, os.WriteFile(configFile, []byte(tt.fileContent), 0644))
			}

			cfg, err := LoadFrom(configFile)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	setPathEnv(t)
	_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadFrom_ResolvesDefaultPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("LOCALAPPDATA", filepath.Join(home, "AppData", "Local"))

	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, LicenseFileName, filepath.Base(cfg.License.StateFile))
	assert.Contains(t, cfg.License.StateFile, AppDirName)
	assert.Equal(t, RevocationFileName, filepath.Base(cfg.License.RevocationFile))
}

func TestServerConfig_Addr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:7420", Default().Server.Addr())
}

func TestGetPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("LOCALAPPDATA", filepath.Join(home, "AppData", "Local"))

	paths, err := GetPaths()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(paths.UserDir, LicenseFileName), paths.LicenseFile)
	assert.Equal(t, filepath.Join(paths.ExecutableDir, RevocationFileName), paths.RevocationFile)
	assert.Equal(t, AppDirName, filepath.Base(paths.UserDir))

	licensePath, err := GetLicensePath()
	require.NoError(t, err)
	assert.Equal(t, paths.LicenseFile, licensePath)

	revocationPath, err := GetRevocationPath()
	require.NoError(t, err)
	assert.Equal(t, paths.RevocationFile, revocationPath)
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	assert.True(t, FileExists(path))
	assert.False(t, FileExists(filepath.Join(dir, "absent.txt")))
}
