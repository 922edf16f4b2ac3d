// Package license decides whether this installation of Pure Presenter is
// authorized to run.
//
// # License Keys
//
// A key has the form CUSTOMERID-YYYYMMDD-SIGNATURE, for example
//
//	CHURCH123-20261019-A7F3E9D2C4B1F8E6
//
// The customer id is 5-20 alphanumeric characters, the date is the last day
// the key is valid and the signature is 16 hex characters computed from the
// customer id, the date and a shared secret (see Signer). Keys verify offline.
//
// # Decision Order
//
// Manager.Check classifies the stored license in a single pass:
//
//	1. no usable license file          NO_LICENSE
//	2. key or customer revoked         REVOKED
//	3. malformed key or bad signature  INVALID
//	4. past 23:59:59 of the expiry day EXPIRED
//	5. within the expiring-soon window EXPIRING_SOON
//	6. otherwise                       ACTIVE
//
// Revocation is consulted before the signature so that a revoked key never
// passes, whatever its shape.
//
// # Storage
//
// The activation record is JSON encrypted with security.Codec and written
// atomically to license.dat. The revocation list is plain JSON shipped next to
// the executable and edited only by the revoke tool.
package license
