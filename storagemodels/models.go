/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/goccy/go-json"
)

// IDKey is the identity key every adapter sees, whatever the service calls its identity field.
const IDKey = "_id"

// Entity is a single persisted document.
type Entity map[string]any

// ID returns the identity value stored under IDKey.
func (e Entity) ID() (string, bool) {
	if e == nil {
		return "", false
	}
	id, ok := IDString(e[IDKey])
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// IDString renders an identity value as a string. Strings pass through and
// integral numbers are rendered in decimal form.
func IDString(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, true
	case int:
		return strconv.Itoa(id), true
	case int32:
		return strconv.FormatInt(int64(id), 10), true
	case int64:
		return strconv.FormatInt(id, 10), true
	case uint:
		return strconv.FormatUint(uint64(id), 10), true
	case uint32:
		return strconv.FormatUint(uint64(id), 10), true
	case uint64:
		return strconv.FormatUint(id, 10), true
	case float64:
		if id != float64(int64(id)) {
			return "", false
		}
		return strconv.FormatInt(int64(id), 10), true
	case float32:
		if id != float32(int64(id)) {
			return "", false
		}
		return strconv.FormatInt(int64(id), 10), true
	case json.Number:
		if _, err := id.Int64(); err != nil {
			return "", false
		}
		return id.String(), true
	case fmt.Stringer:
		return id.String(), true
	default:
		return "", false
	}
}

// ResultSet maps identity values to entities. Its iteration order carries no meaning;
// use Ordered to rebuild a sequence.
type ResultSet map[string]Entity

// Add stores e under its identity value. Entities without identity are ignored.
func (rs ResultSet) Add(e Entity) {
	if id, ok := e.ID(); ok {
		rs[id] = e
	}
}

// IDs returns the identity values in ascending order.
func (rs ResultSet) IDs() []string {
	ids := make([]string, 0, len(rs))
	for id := range rs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Ordered returns the entities sorted ascending by each key of orderBy in turn.
// Ties, and an empty orderBy, fall back to the identity value.
func (rs ResultSet) Ordered(orderBy []string) []Entity {
	ids := rs.IDs()
	out := make([]Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, rs[id])
	}
	SortEntities(out, orderBy)
	return out
}

// SortEntities sorts entities in place, ascending on each key of orderBy left to right.
func SortEntities(entities []Entity, orderBy []string) {
	sort.SliceStable(entities, func(i, j int) bool {
		for _, key := range orderBy {
			av, aok := entities[i][key]
			bv, bok := entities[j][key]
			if !aok || !bok {
				if aok == bok {
					continue
				}
				return !aok
			}
			if c := Compare(av, bv); c != 0 {
				return c < 0
			}
		}
		ai, _ := entities[i].ID()
		bi, _ := entities[j].ID()
		return ai < bi
	})
}

// Operator is a comparison operator understood by the backing store.
type Operator string

const (
	OpEqual            Operator = "=="
	OpNotEqual         Operator = "!="
	OpLess             Operator = "<"
	OpLessOrEqual      Operator = "<="
	OpGreater          Operator = ">"
	OpGreaterOrEqual   Operator = ">="
	OpIn               Operator = "in"
	OpNotIn            Operator = "not-in"
	OpArrayContains    Operator = "array-contains"
	OpArrayContainsAny Operator = "array-contains-any"
)

// Condition is a (field, operator, value) filter. Its JSON form is the triple [field, op, value].
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// MarshalJSON encodes the condition as a triple.
func (c Condition) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Field, string(c.Operator), c.Value})
}

// UnmarshalJSON decodes a [field, op, value] triple.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var triple []any
	if err := json.Unmarshal(data, &triple); err != nil {
		return err
	}
	parsed, err := ConditionFromTriple(triple)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ConditionFromTriple builds a Condition from a decoded [field, op, value] triple.
func ConditionFromTriple(triple []any) (Condition, error) {
	if len(triple) != 3 {
		return Condition{}, fmt.Errorf("condition must have exactly 3 items, got %d", len(triple))
	}
	field, ok := triple[0].(string)
	if !ok || field == "" {
		return Condition{}, fmt.Errorf("condition field must be a non-empty string")
	}
	op, ok := triple[1].(string)
	if !ok || op == "" {
		return Condition{}, fmt.Errorf("condition operator must be a non-empty string")
	}
	return Condition{Field: field, Operator: Operator(op), Value: triple[2]}, nil
}

// Query selects entities of a collection. Conditions are AND-combined, Limit of 0 means
// unbounded and OrderBy keys are applied left to right, ascending.
type Query struct {
	Conditions []Condition `json:"conditions,omitempty"`
	Limit      int         `json:"limit,omitempty"`
	OrderBy    []string    `json:"orderBy,omitempty"`
}

// IsEmpty reports whether the query selects the whole collection.
func (q Query) IsEmpty() bool {
	return len(q.Conditions) == 0 && q.Limit <= 0 && len(q.OrderBy) == 0
}
