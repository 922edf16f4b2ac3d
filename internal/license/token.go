package license

import (
	"crypto/subtle"
	"fmt"
	"regexp"
	"strings"
	"time"

	apperrors "purepresenter/internal/errors"
)

const (
	// SignatureLength is the number of hex characters in a key signature
	SignatureLength = 16
	// ExpiryLayout is the layout of the expiry segment
	ExpiryLayout = "20060102"
	// DateLayout is how expiry dates are shown to users
	DateLayout = "2006-01-02"
)

// User-facing rejection messages. The desktop UI shows them verbatim.
const (
	MsgInvalidFormat      = "Invalid license key format"
	MsgInvalidCustomerID  = "Invalid customer ID in license key"
	MsgInvalidExpiry      = "Invalid expiration date format"
	MsgInvalidSignature   = "Invalid license signature"
	MsgSignatureMismatch  = "License key signature verification failed"
	MsgInvalidExpiryDate  = "Invalid expiration date"
	MsgCustomerIDRequired = "Customer ID must be 5-20 alphanumeric characters"
)

var (
	customerIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{5,20}$`)
	expiryPattern     = regexp.MustCompile(`^[0-9]{8}$`)
	signaturePattern  = regexp.MustCompile(`^[A-Fa-f0-9]{16}$`)
)

// Clock returns the current time
type Clock func() time.Time

// Validation is the result of a successfully verified token
type Validation struct {
	Token         string
	CustomerID    string
	ExpirySegment string
	Expiry        time.Time // 23:59:59 local time on the expiry day
	// DaysRemaining counts calendar days (see DaysUntil), not the ceiling of
	// the remaining hours, so the expiry day itself reports 0.
	DaysRemaining int
	Expired       bool
}

// TokenCodec parses, verifies and issues CUSTOMER-YYYYMMDD-SIGNATURE keys
type TokenCodec struct {
	signer Signer
	clock  Clock
}

// NewTokenCodec creates a codec. A nil clock means time.Now.
func NewTokenCodec(signer Signer, clock Clock) *TokenCodec {
	if clock == nil {
		clock = time.Now
	}
	return &TokenCodec{signer: signer, clock: clock}
}

// Algorithm reports the signature algorithm in use
func (c *TokenCodec) Algorithm() string {
	return c.signer.Algorithm()
}

// GenerateSignature returns the expected signature for a customer and expiry
// segment. The customer id is upper-cased before signing.
func (c *TokenCodec) GenerateSignature(customerID, expirySegment string) string {
	return c.signer.Sign(strings.ToUpper(customerID), expirySegment)
}

// ParseAndVerify validates token against the codec's clock
func (c *TokenCodec) ParseAndVerify(token string) (*Validation, error) {
	return c.ParseAndVerifyAt(token, c.clock())
}

// ParseAndVerifyAt validates token as of now. Structural checks run before
// any hashing; a structurally valid key with the wrong signature is reported
// as a signature error, never as a format error. An expired key is still a
// valid Validation with Expired set.
func (c *TokenCodec) ParseAndVerifyAt(token string, now time.Time) (*Validation, error) {
	customerID, expirySegment, signature, err := splitToken(token)
	if err != nil {
		return nil, err
	}

	expected := c.GenerateSignature(customerID, expirySegment)
	if subtle.ConstantTimeCompare([]byte(strings.ToUpper(signature)), []byte(expected)) != 1 {
		return nil, apperrors.NewSignatureError(MsgSignatureMismatch)
	}

	expiry, err := ExpiryInstant(expirySegment, now.Location())
	if err != nil {
		return nil, err
	}

	return &Validation{
		Token:         strings.TrimSpace(token),
		CustomerID:    strings.ToUpper(customerID),
		ExpirySegment: expirySegment,
		Expiry:        expiry,
		DaysRemaining: DaysUntil(now, expiry),
		Expired:       now.After(expiry),
	}, nil
}

// Issue builds a signed key for customerID expiring at the end of expiry's
// calendar day.
func (c *TokenCodec) Issue(customerID string, expiry time.Time) (string, error) {
	if err := ValidateCustomerID(customerID); err != nil {
		return "", err
	}

	customer := strings.ToUpper(strings.TrimSpace(customerID))
	segment := expiry.Format(ExpiryLayout)
	return fmt.Sprintf("%s-%s-%s", customer, segment, c.GenerateSignature(customer, segment)), nil
}

// CheckFormat runs the structural checks only. The revocation tool uses it to
// refuse obviously mistyped keys without knowing the secret.
func CheckFormat(token string) error {
	_, _, _, err := splitToken(token)
	return err
}

// ValidateCustomerID checks a customer id for issuing or revoking
func ValidateCustomerID(customerID string) error {
	if !customerIDPattern.MatchString(strings.TrimSpace(customerID)) {
		return apperrors.NewFormatError(MsgCustomerIDRequired)
	}
	return nil
}

// CustomerOf returns the upper-cased first segment of a key. It works on keys
// of any shape.
func CustomerOf(token string) string {
	customer, _, _ := strings.Cut(strings.TrimSpace(token), "-")
	return strings.ToUpper(customer)
}

// ExpiryInstant parses an 8 digit expiry segment into 23:59:59 of that day in
// loc. Impossible calendar dates are rejected.
func ExpiryInstant(segment string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(ExpiryLayout, segment, loc)
	if err != nil {
		return time.Time{}, apperrors.NewFormatError(MsgInvalidExpiryDate)
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, loc), nil
}

// DaysUntil counts calendar days from now's date to expiry's date: 0 on the
// expiry day itself, negative once it has passed. A ceiling over the remaining
// hours would report 1 until midnight and move the EXPIRING_SOON boundary.
func DaysUntil(now, expiry time.Time) int {
	expiry = expiry.In(now.Location())
	ny, nm, nd := now.Date()
	ey, em, ed := expiry.Date()
	from := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC).Unix()
	to := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC).Unix()
	return int((to - from) / 86400)
}

func splitToken(token string) (customerID, expirySegment, signature string, err error) {
	parts := strings.Split(strings.TrimSpace(token), "-")
	if len(parts) != 3 {
		return "", "", "", apperrors.NewFormatError(MsgInvalidFormat)
	}

	customerID, expirySegment, signature = parts[0], parts[1], parts[2]

	if !customerIDPattern.MatchString(customerID) {
		return "", "", "", apperrors.NewFormatError(MsgInvalidCustomerID)
	}
	if !expiryPattern.MatchString(expirySegment) {
		return "", "", "", apperrors.NewFormatError(MsgInvalidExpiry)
	}
	if !signaturePattern.MatchString(signature) {
		return "", "", "", apperrors.NewFormatError(MsgInvalidSignature)
	}
	return customerID, expirySegment, signature, nil
}
