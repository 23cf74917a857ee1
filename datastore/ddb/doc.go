/*
Package ddb provides a DynamoDB implementation of datastore.Adapter.

The adapter is built from an access key and a secret key and operates on the table named
after the service collection:

	adapter := ddb.New(accessKey, secretKey, ddb.WithRegion("eu-west-1"))

Key Features:

Plain tables:
Without an index map the table's partition key is the "_id" attribute.

Macro Expansion:
Single-table designs derive keys from entity fields through macros:

	indexMap := map[string]string{
	    "PK": "POST#{_id}",     // Becomes "POST#123"
	    "SK": "POST#{_id}",
	}
	adapter := ddb.New(accessKey, secretKey, ddb.WithIndexMap(indexMap))

Index maps may also be registered per collection with registry.RegisterIndexMap. Items are
tagged with an EntityType attribute holding the collection name; the adapter strips key and
type attributes from the entities it returns.

Queries:
Find runs a paginated Scan with a filter expression built from the conditions. Throttled
pages are retried with linear backoff. Ordering and limit are applied after the last page.
*/
package ddb
