/*
Package datastore defines the adapter contract between the entity service and a backing store.

Every driver implements Adapter:

	type Adapter interface {
	    Init(info ServiceInfo) error
	    Connect(ctx context.Context) error
	    Disconnect(ctx context.Context) error
	    List(ctx context.Context) (storagemodels.ResultSet, error)
	    Find(ctx context.Context, q storagemodels.Query) (storagemodels.ResultSet, error)
	    FindByID(ctx context.Context, id string) (storagemodels.Entity, error)
	    FindByIDs(ctx context.Context, ids []string) (storagemodels.ResultSet, error)
	    Create(ctx context.Context, entity storagemodels.Entity) (storagemodels.Entity, error)
	    Update(ctx context.Context, id string, values storagemodels.Entity) (storagemodels.Entity, error)
	    Delete(ctx context.Context, id string) (storagemodels.Entity, error)
	}

Adapters are built from two driver-specific credentials and learn their collection at Init.
Absence is signalled with a nil entity and a nil error; failures of the store are wrapped in
errors.StoreError.

Implementations:
  - mock: in-memory adapter with failure injection, also registered as the "memory" driver
  - ddb: DynamoDB
  - firestore: Cloud Firestore
  - pgdoc: PostgreSQL JSONB documents
*/
package datastore
