// Package shared holds helpers used by more than one package of the license
// service.
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//   - LicenseConfig: a license configuration rooted in a test temp dir with
//     cheap scrypt parameters
//   - IssueKey: a signed key for a customer, relative to now
//   - NewTestLogger: a slog logger whose records can be asserted on
//
// Packages that testutil itself depends on (config, license, security)
// cannot use it from their in-package tests.
package shared
