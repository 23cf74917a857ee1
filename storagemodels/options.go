/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

// QueryOption is a functional option for building a Query
type QueryOption func(*Query)

// NewQuery builds a Query from options
func NewQuery(opts ...QueryOption) Query {
	var q Query
	for _, opt := range opts {
		opt(&q)
	}
	return q
}

// Where adds a condition
func Where(field string, op Operator, value any) QueryOption {
	return func(q *Query) {
		q.Conditions = append(q.Conditions, Condition{Field: field, Operator: op, Value: value})
	}
}

// WithLimit sets the maximum number of results
func WithLimit(limit int) QueryOption {
	return func(q *Query) {
		q.Limit = limit
	}
}

// WithOrderBy appends ascending sort keys
func WithOrderBy(keys ...string) QueryOption {
	return func(q *Query) {
		q.OrderBy = append(q.OrderBy, keys...)
	}
}

// ByIDs selects the given identity values.
func ByIDs(ids []string) QueryOption {
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return Where(IDKey, OpIn, values)
}
