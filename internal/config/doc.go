// Package config provides centralized configuration for the Pure Presenter
// licensing core.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. presenter.yaml or configs/presenter.yaml
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables use the PRESENTER_ prefix:
//
//	PRESENTER_LICENSE_SECRET=...
//	PRESENTER_LICENSE_SIGNATURE_ALGORITHM=md5
//	PRESENTER_LICENSE_STATE_FILE=/path/to/license.dat
//	PRESENTER_SERVER_PORT=7420
//	PRESENTER_LOGGING_LEVEL=debug
//
// # Secrets
//
// The license secret is both the token signing key and the passphrase the
// license file key is derived from. It is injected into the codecs at
// construction time; nothing in the license packages reads it globally.
package config
