/*
Package firestore provides a Cloud Firestore implementation of datastore.Adapter.

The adapter takes an API key and a project id, in that order:

	adapter := firestore.New(apiKey, projectID)

A missing credential is reported by Init as ErrMissingAPIKey or ErrMissingProjectID.

Document ids are entity identities. Conditions map one to one onto Firestore filters,
which support every storagemodels operator. FindByIDs splits id sets into chunks of
MaxInValues.

Pass option.WithEndpoint with option.WithoutAuthentication to target the emulator.
*/
package firestore
