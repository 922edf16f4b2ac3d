package config

import "time"

// Application constants for the Pure Presenter licensing core
const (
	// Application Info
	AppName    = "Pure Presenter"
	AppVersion = "1.4.0"
	AppDirName = "AIU-CHURCH-PRESENTER"

	// License System Constants
	LicenseFileName    = "license.dat"
	RevocationFileName = "license-blacklist.json"
	LedgerFileName     = "issued-licenses.db"

	// A license with this many days or fewer left is reported as expiring soon
	DefaultExpiringSoonDays = 7

	// Signature algorithms accepted by license.signature_algorithm
	SignatureMD5        = "md5"
	SignatureHMACSHA256 = "hmac-sha256"

	// Key derivation defaults. These match the parameters the desktop app
	// has always used so existing license files remain readable.
	DefaultKDFSalt = "salt"
	DefaultScryptN = 16384
	DefaultScryptR = 8
	DefaultScryptP = 1

	// Rate Limiting of activation attempts on the local API
	DefaultActivationRPS   = 0.2
	DefaultActivationBurst = 5

	// Network Timeouts
	DefaultHTTPTimeout  = 15 * time.Second
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// Watcher debounce for revocation list and license file changes
	DefaultWatchDebounce = 250 * time.Millisecond

	// Environment variable prefix
	EnvPrefix = "PRESENTER"
)

// DefaultLicenseSecret is the shared signing and encryption passphrase built
// into release binaries. Override per build with
// -ldflags "-X purepresenter/internal/config.DefaultLicenseSecret=..." or at
// runtime with PRESENTER_LICENSE_SECRET.
var DefaultLicenseSecret = "AIU-CHURCH-PRESENTER-2025-SECRET-KEY-CHANGE-THIS-32CHARS!!"
