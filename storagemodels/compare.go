/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"reflect"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// value ranks, lowest first
const (
	rankNull = iota
	rankBool
	rankNumber
	rankTime
	rankString
	rankOther
)

func rank(v any) int {
	switch v.(type) {
	case nil:
		return rankNull
	case bool:
		return rankBool
	case time.Time:
		return rankTime
	case string:
		return rankString
	}
	if _, ok := toFloat(v); ok {
		return rankNumber
	}
	return rankOther
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Compare orders two values: -1 when a < b, 0 when equal, 1 when a > b.
// Values of different kinds order null < bool < number < time < string < other.
// Numbers compare numerically whatever their Go type.
func Compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case rankNull:
		return 0
	case rankBool:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case rankNumber:
		af, _ := toFloat(a)
		bf, _ := toFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	case rankTime:
		return a.(time.Time).Compare(b.(time.Time))
	case rankString:
		return strings.Compare(a.(string), b.(string))
	}
	if reflect.DeepEqual(a, b) {
		return 0
	}
	// no natural order; fall back to the JSON rendering
	aj, _ := json.Marshal(a)
	bj, _ := json.Marshal(b)
	return strings.Compare(string(aj), string(bj))
}

// Equal reports whether two values are equal, treating numbers of any Go type alike.
func Equal(a, b any) bool {
	if rank(a) != rank(b) {
		return false
	}
	if rank(a) == rankOther {
		return reflect.DeepEqual(a, b)
	}
	return Compare(a, b) == 0
}

// elements returns the items of a slice or array value.
func elements(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

func containsValue(items []any, v any) bool {
	for _, item := range items {
		if Equal(item, v) {
			return true
		}
	}
	return false
}

// Match reports whether e satisfies c. Entities missing the field never match,
// the way document stores exclude them from filtered queries.
func (c Condition) Match(e Entity) bool {
	field, ok := e[c.Field]
	if !ok {
		return false
	}
	switch c.Operator {
	case OpEqual:
		return Equal(field, c.Value)
	case OpNotEqual:
		return !Equal(field, c.Value)
	case OpLess, OpLessOrEqual, OpGreater, OpGreaterOrEqual:
		if rank(field) != rank(c.Value) {
			return false
		}
		cmp := Compare(field, c.Value)
		switch c.Operator {
		case OpLess:
			return cmp < 0
		case OpLessOrEqual:
			return cmp <= 0
		case OpGreater:
			return cmp > 0
		default:
			return cmp >= 0
		}
	case OpIn, OpNotIn:
		values, ok := elements(c.Value)
		if !ok {
			return false
		}
		found := containsValue(values, field)
		if c.Operator == OpIn {
			return found
		}
		return !found
	case OpArrayContains:
		items, ok := elements(field)
		return ok && containsValue(items, c.Value)
	case OpArrayContainsAny:
		items, ok := elements(field)
		if !ok {
			return false
		}
		values, ok := elements(c.Value)
		if !ok {
			return false
		}
		for _, v := range values {
			if containsValue(items, v) {
				return true
			}
		}
		return false
	}
	return false
}

// Matches reports whether e satisfies every condition of q.
func (q Query) Matches(e Entity) bool {
	for _, c := range q.Conditions {
		if !c.Match(e) {
			return false
		}
	}
	return true
}

// Apply filters, orders and limits a set of candidate entities in memory.
// Drivers without native ordering use it after fetching candidates. Entities
// missing an orderBy key are dropped, matching document store semantics.
func (q Query) Apply(candidates []Entity) ResultSet {
	selected := make([]Entity, 0, len(candidates))
	for _, e := range candidates {
		if !q.Matches(e) {
			continue
		}
		if !hasKeys(e, q.OrderBy) {
			continue
		}
		selected = append(selected, e)
	}
	SortEntities(selected, q.OrderBy)
	if q.Limit > 0 && len(selected) > q.Limit {
		selected = selected[:q.Limit]
	}
	rs := make(ResultSet, len(selected))
	for _, e := range selected {
		rs.Add(e)
	}
	return rs
}

func hasKeys(e Entity, keys []string) bool {
	for _, k := range keys {
		if _, ok := e[k]; !ok {
			return false
		}
	}
	return true
}
