/*
Package errors provides semantic error types for the entity service.

The package defines the error taxonomy of the service layer. Every typed error
matches a sentinel through errors.Is, so callers can branch on the category
without knowing the concrete type:

	var (
	    ErrNotFound          = errors.New("entity not found")
	    ErrInvalidInput      = errors.New("invalid input")
	    ErrConfiguration     = errors.New("invalid configuration")
	    ErrMissingCredential = errors.New("missing credential")
	    ErrStore             = errors.New("store failure")
	    ErrNotConnected      = errors.New("adapter not connected")
	)

Categories:
  - ConfigurationError: fatal, surfaced when a service is built or started
    (missing collection name, missing adapter).
  - MissingCredentialError: fatal, raised by an adapter's Init when one of its
    construction credentials is empty. Variants compare equal when they name the
    same adapter and credential.
  - ValidationError: per request, raised before any adapter call.
  - StoreError: per request and opaque, wraps whatever the backing store returned.

Usage:

	entity, err := svc.Update(ctx, "123", storagemodels.Entity{"title": "new"})
	if err != nil {
	    if errors.IsValidationError(err) {
	        // reject the request
	    }
	    if errors.IsNotFound(err) {
	        // nothing to update
	    }
	    return nil, err
	}
*/
package errors
