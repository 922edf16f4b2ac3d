// Package app wires the Pure Presenter license service together.
//
// # Initialization Flow
//
//	1. Configuration and logging are prepared by the caller
//	2. OpenTelemetry providers are initialized
//	3. NewCore builds the codecs, state store, revocation list and manager
//	4. The status hub, license service and health service are created
//	5. The chi router is assembled with middleware and routes
//
// # Lifecycle
//
// Serve runs the HTTP server, the status hub and the file watcher in one
// errgroup. Cancelling the context shuts the server down gracefully and
// flushes telemetry:
//
//	application, err := app.New(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// The admin tools reuse NewCore so they sign, encrypt and revoke with the
// exact configuration the service verifies with.
package app
