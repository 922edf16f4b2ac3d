package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
)

// Paths contains the file locations used by the license core
type Paths struct {
	// ExecutableDir holds the files shipped with the application, including
	// the distributed revocation list.
	ExecutableDir  string
	RevocationFile string

	// UserDir is the per-user application directory that holds the
	// encrypted activation record.
	UserDir     string
	LicenseFile string

	LogsDir string
}

// GetPaths resolves the application paths for the current user and executable
func GetPaths() (*Paths, error) {
	exeDir, err := executableDir()
	if err != nil {
		return nil, err
	}

	userDir, err := UserDataDir()
	if err != nil {
		return nil, err
	}

	paths := &Paths{
		ExecutableDir:  exeDir,
		RevocationFile: filepath.Join(exeDir, RevocationFileName),
		UserDir:        userDir,
		LicenseFile:    filepath.Join(userDir, LicenseFileName),
		LogsDir:        filepath.Join(userDir, "logs"),
	}

	return paths, nil
}

// UserDataDir returns the per-user directory of the application. On Windows
// this is %LOCALAPPDATA%\AIU-CHURCH-PRESENTER, where earlier releases kept
// license.dat; elsewhere it lives under os.UserConfigDir.
func UserDataDir() (string, error) {
	if runtime.GOOS == "windows" {
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, AppDirName), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		return filepath.Join(home, "AppData", "Local", AppDirName), nil
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config directory: %w", err)
	}
	return filepath.Join(base, AppDirName), nil
}

// GetLicensePath returns the default location of the encrypted license file
func GetLicensePath() (string, error) {
	dir, err := UserDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, LicenseFileName), nil
}

// GetRevocationPath returns the default location of the revocation list
func GetRevocationPath() (string, error) {
	dir, err := executableDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, RevocationFileName), nil
}

// FileExists reports whether path exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LogPathResolution logs resolved paths for support diagnostics
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Resolved application paths",
		slog.String("executable_dir", p.ExecutableDir),
		slog.String("user_dir", p.UserDir),
		slog.String("license_file", p.LicenseFile),
		slog.Bool("license_exists", FileExists(p.LicenseFile)),
		slog.String("revocation_file", p.RevocationFile),
		slog.Bool("revocation_exists", FileExists(p.RevocationFile)),
	)
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %v", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	return filepath.Dir(exe), nil
}
