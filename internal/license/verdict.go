package license

import "time"

// Status classifies a license check
type Status string

const (
	StatusNoLicense    Status = "NO_LICENSE"
	StatusRevoked      Status = "REVOKED"
	StatusInvalid      Status = "INVALID"
	StatusExpired      Status = "EXPIRED"
	StatusExpiringSoon Status = "EXPIRING_SOON"
	StatusActive       Status = "ACTIVE"
)

// Authorized reports whether the application may run under this status
func (s Status) Authorized() bool {
	return s == StatusActive || s == StatusExpiringSoon
}

const (
	MsgNoLicense       = "No license found. Please activate the application."
	MsgActive          = "License is active"
	MsgAlreadyExpired  = "This license key has already expired"
	MsgSaveFailed      = "Failed to save license file"
	MsgActivated       = "License activated successfully"
	msgExpiredOnFormat = "License expired on %s"
	msgExpiresInFormat = "License expires in %d day(s)"
)

// Verdict is the outcome of Manager.Check. It is recomputed on every call
// and never persisted.
type Verdict struct {
	Authorized    bool       `json:"authorized"`
	Status        Status     `json:"status"`
	Message       string     `json:"message"`
	CustomerID    string     `json:"customerId,omitempty"`
	Expiry        *time.Time `json:"expiry,omitempty"`
	DaysRemaining *int       `json:"daysRemaining,omitempty"`
	ActivatedDate *time.Time `json:"activatedDate,omitempty"`
	CustomerInfo  string     `json:"customerInfo,omitempty"`
	CheckedAt     time.Time  `json:"checkedAt"`
}

// Same reports whether two verdicts would look the same to a user, ignoring
// when they were computed.
func (v Verdict) Same(other Verdict) bool {
	return v.Status == other.Status &&
		v.Message == other.Message &&
		v.CustomerID == other.CustomerID &&
		intValue(v.DaysRemaining) == intValue(other.DaysRemaining)
}

// ActivationResult is the outcome of Manager.Activate
type ActivationResult struct {
	Success       bool       `json:"success"`
	Status        Status     `json:"status,omitempty"`
	Message       string     `json:"message"`
	CustomerID    string     `json:"customerId,omitempty"`
	Expiry        *time.Time `json:"expiry,omitempty"`
	DaysRemaining *int       `json:"daysRemaining,omitempty"`

	// Err holds the typed rejection for callers that map it further
	Err error `json:"-"`
}

func intValue(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func intPtr(i int) *int {
	return &i
}
