// Package http implements the handlers of the local license API that the
// presentation app talks to on the loopback interface.
//
// Handlers stay thin: they decode and validate the request, call the
// service layer and render the result with chi/render. Errors are turned
// into the shared error envelope by apperrors.ErrorHandler.
//
// # Endpoints
//
//	GET    /api/license/status    current verdict
//	POST   /api/license/activate  activate a key (rate limited)
//	DELETE /api/license           remove the local license
//	GET    /api/license/data      stored activation record
//	GET    /api/health            health summary
//	GET    /api/version           build information
package http
