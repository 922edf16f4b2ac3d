// Package services holds the application layer between the license core and
// its transports. LicenseService adds tracing and status broadcasting on top
// of license.Manager; HealthService reports process health.
package services
