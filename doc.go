/*
Package entityservice provides a storage-agnostic CRUD service layer for Go microservices,
exposing generic get/find/list/create/update/delete operations over any backing store that
implements datastore.Adapter.

The service owns the control flow around the adapter:
  - Parameter validation of the generic actions (Call)
  - Identity normalization of created documents (NormalizeEntity)
  - Connection lifecycle with an unbounded fixed-delay connect retry (Start/Stop)
  - Cache invalidation broadcasts and created/updated/removed hooks after every mutation
  - Optional result caching, entity validation (func or JSON schema) and prometheus metrics

Drivers live under datastore/ (mock, ddb, firestore, pgdoc) and register themselves with the
registry package, so a binary can select one by name.

Basic Usage:

	adapter := firestore.New(apiKey, projectID)
	svc, err := entityservice.New("posts", adapter,
		entityservice.WithVersion("v2"),
		entityservice.WithLogger(logger),
		entityservice.WithHooks(entityservice.Hooks{
			Created: func(ctx context.Context, post storagemodels.Entity) error {
				logger.Info("post created", zap.Any("id", post["_id"]))
				return nil
			},
		}),
	)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop(context.Background())

	post, err := svc.Call(ctx, entityservice.ActionCreate, entityservice.Params{
		"doc": map[string]any{"title": "Hello", "category": "JS"},
	})

	// Typed access
	posts := entityservice.NewTypedService[Post](svc)
	p, err := posts.Get(ctx, "123")

For more information, see the documentation at https://github.com/suparena/entityservice
*/
package entityservice
