// Package rest exposes entity services over HTTP with gin. Every route translates to one
// Service.Call action, and errors map to status codes: validation failures to 400, absent get or
// update targets to 404, an unconfigured or disconnected service to 503 and anything else to 500.
// Deleting an absent entity succeeds with a null body.
package rest
