/*
Package api defines the HTTP interface of the reputation registry.

This package is organized into three subpackages:

1. handlers - Request decoding, authentication and dispatch to the registry
2. servers - HTTP server configuration and lifecycle management
3. clients - A client library that signs requests on behalf of a caller

The types in this package are shared by both sides: request and response
bodies, route paths and the mapping between registry errors and HTTP
responses.

# Authentication

Every mutating request carries the caller's identity and a signature over
the method, path and body (see package cryptoutils). Queries are public.

# Errors

Errors are returned as {"code": ..., "error": ...}. Classify maps registry
errors to codes and status codes; APIError maps them back on the client
side:

	400 score_out_of_range, grade_too_long, metadata_too_long, bad_request
	401 invalid_signature
	403 unauthorized, agent_not_active
	404 not_found, agent_not_found
	409 already_initialized, already_exists, not_initialized
	500 internal
*/
package api
