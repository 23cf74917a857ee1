/*
Package registry keeps the named adapter drivers and per-collection index maps.

Driver Registry:
Each driver package registers a factory in its init function:

	func init() {
	    registry.Register("firestore", func(c registry.Credentials) (datastore.Adapter, error) {
	        return firestore.New(c.Primary, c.Secondary)
	    })
	}

Callers pick a driver by name, typically from configuration, after importing the driver
package for its side effect:

	import _ "github.com/suparena/entityservice/datastore/firestore"

	adapter, err := registry.New("firestore", registry.Credentials{Primary: apiKey, Secondary: projectID})

Index Map Registry:
Associates a collection with the key patterns of a composite-key table:

	registry.RegisterIndexMap("posts", map[string]string{
	    "PK": "POST#{_id}",
	    "SK": "POST#{_id}",
	})

Both registries are thread-safe and should be populated during initialization.
*/
package registry
