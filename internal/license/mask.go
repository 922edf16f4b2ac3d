package license

// MaskLicenseKey hides the middle of a key for logs and display
// (CHUR****6789). Keys shorter than 8 characters are fully masked.
func MaskLicenseKey(key string) string {
	if len(key) < 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
