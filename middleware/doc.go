// Package middleware exposes HTTP adapters around the cineauth Engine:
// bearer-token guarding of protected routes and per-route rate-limit
// admission.
//
// # Adapters
//
//   - [Guard] — reads the Authorization header, calls Engine.Validate, and
//     injects the validated result into the request context.
//   - [RateLimit] — calls Engine.AdmitRequest with the route's path class
//     before the handler runs; rejections answer 429/403 with Retry-After.
//
// Path classes are assigned per route at mount time, never inferred from the
// URL string.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication or admission logic itself.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Classify paths by inspecting the URL.
package middleware
