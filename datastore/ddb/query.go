/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/entityservice/errors"
	"github.com/suparena/entityservice/storagemodels"
)

// maxInOperands is the DynamoDB limit on the operands of an IN comparison.
const maxInOperands = 100

var comparators = map[storagemodels.Operator]string{
	storagemodels.OpEqual:          "=",
	storagemodels.OpNotEqual:       "<>",
	storagemodels.OpLess:           "<",
	storagemodels.OpLessOrEqual:    "<=",
	storagemodels.OpGreater:        ">",
	storagemodels.OpGreaterOrEqual: ">=",
}

// List scans the whole collection.
func (d *Adapter) List(ctx context.Context) (storagemodels.ResultSet, error) {
	return d.Find(ctx, storagemodels.Query{})
}

// Find scans the table with a filter expression built from the conditions.
// DynamoDB applies Limit before filtering and has no ordered scan, so ordering and
// limit are applied once all pages have been read.
func (d *Adapter) Find(ctx context.Context, q storagemodels.Query) (storagemodels.ResultSet, error) {
	client, err := d.handle("find")
	if err != nil {
		return nil, err
	}

	conditions := q.Conditions
	if d.indexMap != nil {
		conditions = append([]storagemodels.Condition{{
			Field:    entityTypeAttr,
			Operator: storagemodels.OpEqual,
			Value:    d.tableName,
		}}, conditions...)
	}

	filter, names, values, err := buildFilterExpression(conditions)
	if err != nil {
		return nil, errors.NewStoreError("find", err)
	}

	input := &sdk.ScanInput{
		TableName:      &d.tableName,
		ConsistentRead: boolPtr(true),
	}
	if filter != "" {
		input.FilterExpression = &filter
		input.ExpressionAttributeNames = names
		input.ExpressionAttributeValues = values
	}

	items, err := d.scanAll(ctx, client, input)
	if err != nil {
		return nil, errors.NewStoreError("find", err)
	}

	candidates := make([]storagemodels.Entity, 0, len(items))
	for _, item := range items {
		e, err := d.toEntity(item)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, e)
	}

	// conditions were applied server side; Apply settles order and limit
	return q.Apply(candidates), nil
}

// FindByIDs issues one filtered scan per chunk of ids.
func (d *Adapter) FindByIDs(ctx context.Context, ids []string) (storagemodels.ResultSet, error) {
	out := make(storagemodels.ResultSet, len(ids))
	for start := 0; start < len(ids); start += maxInOperands {
		end := start + maxInOperands
		if end > len(ids) {
			end = len(ids)
		}
		rs, err := d.Find(ctx, storagemodels.NewQuery(storagemodels.ByIDs(ids[start:end])))
		if err != nil {
			return nil, err
		}
		for id, e := range rs {
			out[id] = e
		}
	}
	return out, nil
}

// buildFilterExpression turns AND-combined conditions into a DynamoDB filter expression.
// Conditions with an empty operand list are left out of the expression; in-memory
// evaluation settles them afterwards.
func buildFilterExpression(conditions []storagemodels.Condition) (string,
	map[string]string,
	map[string]types.AttributeValue,
	error) {

	if len(conditions) == 0 {
		return "", nil, nil, nil
	}

	clauses := make([]string, 0, len(conditions))
	names := make(map[string]string)
	values := make(map[string]types.AttributeValue)

	placeholder := func(v any, i, j int) (string, error) {
		name := fmt.Sprintf(":c%d_%d", i, j)
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("condition %d: %w", i, err)
		}
		values[name] = av
		return name, nil
	}

	for i, c := range conditions {
		field := fmt.Sprintf("#c%d", i)

		if cmp, ok := comparators[c.Operator]; ok {
			v, err := placeholder(c.Value, i, 0)
			if err != nil {
				return "", nil, nil, err
			}
			names[field] = c.Field
			clauses = append(clauses, fmt.Sprintf("%s %s %s", field, cmp, v))
			continue
		}

		switch c.Operator {
		case storagemodels.OpArrayContains:
			v, err := placeholder(c.Value, i, 0)
			if err != nil {
				return "", nil, nil, err
			}
			names[field] = c.Field
			clauses = append(clauses, fmt.Sprintf("contains(%s, %s)", field, v))

		case storagemodels.OpIn, storagemodels.OpNotIn, storagemodels.OpArrayContainsAny:
			operands, ok := operandList(c.Value)
			if !ok {
				return "", nil, nil, errors.NewValidationError(c.Field, fmt.Sprintf("operator %q requires a list value", c.Operator))
			}
			if len(operands) == 0 {
				continue
			}
			if len(operands) > maxInOperands {
				return "", nil, nil, errors.NewValidationError(c.Field, fmt.Sprintf("operator %q accepts at most %d values", c.Operator, maxInOperands))
			}
			refs := make([]string, 0, len(operands))
			for j, operand := range operands {
				v, err := placeholder(operand, i, j)
				if err != nil {
					return "", nil, nil, err
				}
				refs = append(refs, v)
			}
			names[field] = c.Field

			switch c.Operator {
			case storagemodels.OpIn:
				clauses = append(clauses, fmt.Sprintf("%s IN (%s)", field, strings.Join(refs, ", ")))
			case storagemodels.OpNotIn:
				clauses = append(clauses, fmt.Sprintf("(attribute_exists(%s) AND NOT (%s IN (%s)))", field, field, strings.Join(refs, ", ")))
			default:
				alternatives := make([]string, 0, len(refs))
				for _, ref := range refs {
					alternatives = append(alternatives, fmt.Sprintf("contains(%s, %s)", field, ref))
				}
				clauses = append(clauses, "("+strings.Join(alternatives, " OR ")+")")
			}

		default:
			return "", nil, nil, errors.NewValidationError(c.Field, fmt.Sprintf("unsupported operator %q", c.Operator))
		}
	}

	if len(clauses) == 0 {
		return "", nil, nil, nil
	}
	return strings.Join(clauses, " AND "), names, values, nil
}

func operandList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

func boolPtr(b bool) *bool {
	return &b
}
