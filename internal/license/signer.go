package license

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"purepresenter/internal/config"
)

// Signer computes the 16 hex character signature embedded in a license key.
// Issuing tool and application must use the same Signer and secret.
type Signer interface {
	Sign(customerID, expirySegment string) string
	Algorithm() string
}

// NewSigner returns the Signer for a configured algorithm name
func NewSigner(algorithm, secret string) (Signer, error) {
	if secret == "" {
		return nil, fmt.Errorf("license secret cannot be empty")
	}

	switch algorithm {
	case config.SignatureMD5, "":
		return &MD5Signer{secret: secret}, nil
	case config.SignatureHMACSHA256:
		return &HMACSigner{secret: []byte(secret)}, nil
	default:
		return nil, fmt.Errorf("unsupported signature algorithm: %q", algorithm)
	}
}

// MD5Signer signs MD5(customer + "-" + expiry + "-" + secret). Every key
// issued so far carries this signature.
type MD5Signer struct {
	secret string
}

func (s *MD5Signer) Sign(customerID, expirySegment string) string {
	sum := md5.Sum([]byte(customerID + "-" + expirySegment + "-" + s.secret))
	return truncate(sum[:])
}

func (s *MD5Signer) Algorithm() string { return config.SignatureMD5 }

// HMACSigner signs HMAC-SHA256(secret, customer + "-" + expiry)
type HMACSigner struct {
	secret []byte
}

func (s *HMACSigner) Sign(customerID, expirySegment string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(customerID + "-" + expirySegment))
	return truncate(mac.Sum(nil))
}

func (s *HMACSigner) Algorithm() string { return config.SignatureHMACSHA256 }

func truncate(sum []byte) string {
	return strings.ToUpper(hex.EncodeToString(sum)[:SignatureLength])
}
