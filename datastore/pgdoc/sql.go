/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package pgdoc

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/suparena/entityservice/errors"
	"github.com/suparena/entityservice/storagemodels"
)

type sqlBuilder struct {
	args []any
}

func (b *sqlBuilder) param(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *sqlBuilder) jsonParam(v any) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return b.param(string(payload)) + "::jsonb", nil
}

// field renders the JSONB path of a top-level document field.
func (b *sqlBuilder) field(name string) string {
	return "(doc -> " + b.param(name) + "::text)"
}

var comparators = map[storagemodels.Operator]string{
	storagemodels.OpLess:           "<",
	storagemodels.OpLessOrEqual:    "<=",
	storagemodels.OpGreater:        ">",
	storagemodels.OpGreaterOrEqual: ">=",
}

// buildSelect compiles a query to a SELECT over the document table. Documents missing a
// filtered or ordered field never match, and range comparisons only hold between values
// of the same JSON type.
func buildSelect(table string, q storagemodels.Query) (string, []any, error) {
	b := &sqlBuilder{}
	var where []string

	for _, c := range q.Conditions {
		clause, err := b.condition(c)
		if err != nil {
			return "", nil, err
		}
		where = append(where, clause)
	}

	order := make([]string, 0, len(q.OrderBy)+1)
	for _, key := range q.OrderBy {
		f := b.field(key)
		where = append(where, f+" IS NOT NULL")
		order = append(order, f+" ASC")
	}
	order = append(order, "id ASC")

	stmt := "SELECT doc FROM " + table
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += " ORDER BY " + strings.Join(order, ", ")
	if q.Limit > 0 {
		stmt += " LIMIT " + b.param(q.Limit)
	}
	return stmt, b.args, nil
}

func (b *sqlBuilder) condition(c storagemodels.Condition) (string, error) {
	f := b.field(c.Field)

	switch c.Operator {
	case storagemodels.OpEqual:
		v, err := b.jsonParam(c.Value)
		if err != nil {
			return "", err
		}
		return f + " = " + v, nil

	case storagemodels.OpNotEqual:
		v, err := b.jsonParam(c.Value)
		if err != nil {
			return "", err
		}
		return "(" + f + " IS NOT NULL AND " + f + " <> " + v + ")", nil

	case storagemodels.OpLess, storagemodels.OpLessOrEqual, storagemodels.OpGreater, storagemodels.OpGreaterOrEqual:
		v, err := b.jsonParam(c.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(jsonb_typeof(%s) = jsonb_typeof(%s) AND %s %s %s)", f, v, f, comparators[c.Operator], v), nil

	case storagemodels.OpIn, storagemodels.OpNotIn, storagemodels.OpArrayContainsAny:
		if _, ok := c.Value.([]any); !ok {
			if _, ok := c.Value.([]string); !ok {
				return "", errors.NewValidationError(c.Field, fmt.Sprintf("operator %q requires a list value", c.Operator))
			}
		}
		v, err := b.jsonParam(c.Value)
		if err != nil {
			return "", err
		}
		switch c.Operator {
		case storagemodels.OpIn:
			return f + " IN (SELECT jsonb_array_elements(" + v + "))", nil
		case storagemodels.OpNotIn:
			return "(" + f + " IS NOT NULL AND " + f + " NOT IN (SELECT jsonb_array_elements(" + v + ")))", nil
		default:
			return "(jsonb_typeof(" + f + ") = 'array' AND EXISTS (SELECT 1 FROM jsonb_array_elements(" + v + ") AS candidate WHERE " + f + " @> jsonb_build_array(candidate)))", nil
		}

	case storagemodels.OpArrayContains:
		v, err := b.jsonParam(c.Value)
		if err != nil {
			return "", err
		}
		return "(jsonb_typeof(" + f + ") = 'array' AND " + f + " @> jsonb_build_array(" + v + "))", nil
	}

	return "", errors.NewValidationError(c.Field, fmt.Sprintf("unsupported operator %q", c.Operator))
}
