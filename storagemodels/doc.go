/*
Package storagemodels defines the data structures passed between the service and its adapters.

Key Types:

Entity:
A document, keyed by field name. Adapters always find the identity value under IDKey ("_id"):

	post := storagemodels.Entity{"_id": "1", "category": "JS", "author": "B"}

Query:
Conditions (AND-combined), an optional limit and ascending sort keys:

	q := storagemodels.NewQuery(
	    storagemodels.Where("category", storagemodels.OpEqual, "JS"),
	    storagemodels.WithOrderBy("author"),
	    storagemodels.WithLimit(10),
	)

A Condition travels over the wire as the triple ["category", "==", "JS"].

ResultSet:
Multi-document reads return a mapping of identity value to entity. Map iteration
order is random, so consumers rebuild a sequence with the query's sort keys:

	for _, post := range results.Ordered(q.OrderBy) {
	    fmt.Println(post["author"])
	}

Compare, Equal, Condition.Match and Query.Apply give drivers without native
filtering or ordering a shared in-memory evaluation.
*/
package storagemodels
