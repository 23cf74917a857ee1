/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entityservice

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/suparena/entityservice/errors"
	"github.com/suparena/entityservice/storagemodels"
)

// Action names accepted by Call.
const (
	ActionGet    = "get"
	ActionFind   = "find"
	ActionList   = "list"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Params are the raw parameters of an action call, typically decoded from JSON.
type Params map[string]any

type getParams struct {
	ID any `mapstructure:"id"`
}

type findParams struct {
	Conditions []storagemodels.Condition `mapstructure:"conditions"`
	Limit      *int                      `mapstructure:"limit" validate:"omitempty,gt=0"`
	OrderBy    []string                  `mapstructure:"orderBy" validate:"omitempty,dive,required"`
}

type listParams struct {
	Page     *int     `mapstructure:"page" validate:"omitempty,gt=0"`
	PageSize *int     `mapstructure:"pageSize" validate:"omitempty,gt=0"`
	OrderBy  []string `mapstructure:"orderBy" validate:"omitempty,dive,required"`
}

type createParams struct {
	Doc map[string]any `mapstructure:"doc" validate:"required"`
}

type updateParams struct {
	ID     any            `mapstructure:"id"`
	Values map[string]any `mapstructure:"values" validate:"required"`
}

type deleteParams struct {
	ID any `mapstructure:"id"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Call validates params and runs the named action. Validation failures are returned as
// ValidationError before the adapter is touched.
//
// Results: get returns an Entity (nil when absent) or a ResultSet for a sequence of ids, find
// a ResultSet, list a *Page, create and update the stored Entity, delete the removed Entity or nil.
// With a cacher configured, get results pass through JSON: numbers come back as float64 whether
// or not the entry was already cached.
func (s *Service) Call(ctx context.Context, action string, params Params) (any, error) {
	if _, ok := RequestFromContext(ctx); !ok {
		ctx = WithRequest(ctx, &Request{Action: action, Params: params})
	}

	switch action {
	case ActionGet:
		return s.callGet(ctx, params)
	case ActionFind:
		return s.callFind(ctx, params)
	case ActionList:
		return s.callList(ctx, params)
	case ActionCreate:
		return s.callCreate(ctx, params)
	case ActionUpdate:
		return s.callUpdate(ctx, params)
	case ActionDelete:
		return s.callDelete(ctx, params)
	default:
		return nil, errors.NewValidationError("action", fmt.Sprintf("unknown action %q", action))
	}
}

func (s *Service) callGet(ctx context.Context, params Params) (any, error) {
	var p getParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	if ids, ok := s.idList(p.ID); ok {
		if err := s.checkIDs(ids); err != nil {
			return nil, err
		}
		key := s.cacheKey("many", ids)
		var cached storagemodels.ResultSet
		if s.cacheGet(ctx, key, &cached) {
			return cached, nil
		}
		rs, err := s.GetMany(ctx, ids)
		if err != nil {
			return nil, err
		}
		var stored storagemodels.ResultSet
		if s.cacheSet(ctx, key, rs, &stored) {
			return stored, nil
		}
		return rs, nil
	}

	id, err := s.singleID(p.ID)
	if err != nil {
		return nil, err
	}
	key := s.cacheKey("one", []string{id})
	var cached storagemodels.Entity
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}
	entity, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, nil
	}
	var stored storagemodels.Entity
	if s.cacheSet(ctx, key, entity, &stored) {
		return stored, nil
	}
	return entity, nil
}

func (s *Service) callFind(ctx context.Context, params Params) (any, error) {
	var p findParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	q := storagemodels.Query{Conditions: p.Conditions, OrderBy: p.OrderBy}
	if p.Limit != nil {
		q.Limit = *p.Limit
	}
	return s.Find(ctx, q)
}

func (s *Service) callList(ctx context.Context, params Params) (any, error) {
	var p listParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	page, pageSize := 1, s.settings.PageSize
	if p.Page != nil {
		page = *p.Page
	}
	if p.PageSize != nil {
		pageSize = *p.PageSize
	}
	return s.Page(ctx, page, pageSize, p.OrderBy)
}

func (s *Service) callCreate(ctx context.Context, params Params) (any, error) {
	var p createParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return s.Create(ctx, p.Doc)
}

func (s *Service) callUpdate(ctx context.Context, params Params) (any, error) {
	var p updateParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	id, err := s.singleID(p.ID)
	if err != nil {
		return nil, err
	}
	return s.Update(ctx, id, p.Values)
}

func (s *Service) callDelete(ctx context.Context, params Params) (any, error) {
	var p deleteParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	id, err := s.singleID(p.ID)
	if err != nil {
		return nil, err
	}
	entity, err := s.Delete(ctx, id)
	if err != nil || entity == nil {
		return nil, err
	}
	return entity, nil
}

// singleID accepts a string or a number.
func (s *Service) singleID(v any) (string, error) {
	if v == nil {
		return "", errors.NewValidationError("id", "is required")
	}
	id, ok := storagemodels.IDString(v)
	if !ok {
		return "", errors.NewValidationError("id", fmt.Sprintf("must be a string or an integer, got %T", v))
	}
	if id == "" {
		return "", errors.NewValidationError("id", "must not be empty")
	}
	if err := s.checkIDs([]string{id}); err != nil {
		return "", err
	}
	return id, nil
}

// idList reports whether v is a sequence of scalar ids and returns them rendered as strings.
// A sequence holding anything else is reported as a single value so singleID rejects it.
func (s *Service) idList(v any) ([]string, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	ids := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		id, ok := storagemodels.IDString(rv.Index(i).Interface())
		if !ok {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func (s *Service) checkIDs(ids []string) error {
	format := s.settings.IDFormat
	if format == "" {
		return nil
	}
	for _, id := range ids {
		if !strfmt.Default.Validates(format, id) {
			return errors.NewValidationError("id", fmt.Sprintf("%q is not a valid %s", id, format))
		}
	}
	return nil
}

// cacheKey is <fullName>.get:<shape>:<JSON id list>, so a scalar and a sequence get never share
// an entry and ids holding separators stay distinct.
func (s *Service) cacheKey(shape string, ids []string) string {
	encoded, _ := json.Marshal(ids) // []string always encodes
	return s.fullName + "." + ActionGet + ":" + shape + ":" + string(encoded)
}

func (s *Service) cacheGet(ctx context.Context, key string, out any) bool {
	if s.cacher == nil {
		return false
	}
	data, found, err := s.cacher.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.logger.Warn("cache entry is corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// cacheSet stores v under key and decodes the stored bytes into out, so a miss answers with
// the same JSON-typed values a later hit will. It reports whether out was filled.
func (s *Service) cacheSet(ctx context.Context, key string, v any, out any) bool {
	if s.cacher == nil {
		return false
	}
	data, err := json.Marshal(v)
	if err == nil {
		err = s.cacher.Set(ctx, key, data)
	}
	if err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func decodeParams(params Params, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(conditionHook, strictIntHook),
		Result:     out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any(params)); err != nil {
		return errors.NewValidationError("", err.Error())
	}

	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.NewValidationError(fe.Field(), fmt.Sprintf("failed on the %q rule", fe.Tag()))
		}
		return errors.NewValidationError("", err.Error())
	}
	return nil
}

var conditionType = reflect.TypeOf(storagemodels.Condition{})

// conditionHook decodes a [field, operator, value] triple into a Condition.
func conditionHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != conditionType || (from.Kind() != reflect.Slice && from.Kind() != reflect.Array) {
		return data, nil
	}
	rv := reflect.ValueOf(data)
	triple := make([]any, rv.Len())
	for i := range triple {
		triple[i] = rv.Index(i).Interface()
	}
	return storagemodels.ConditionFromTriple(triple)
}

// strictIntHook rejects fractional numbers and converts numeric strings for int targets.
func strictIntHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Int {
		return data, nil
	}
	switch v := data.(type) {
	case float64:
		if v != math.Trunc(v) || math.Abs(v) >= 1<<63 {
			return nil, fmt.Errorf("expected an integer, got %v", v)
		}
		return int(v), nil
	case float32:
		if float64(v) != math.Trunc(float64(v)) || math.Abs(float64(v)) >= 1<<63 {
			return nil, fmt.Errorf("expected an integer, got %v", v)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("expected an integer, got %q", v)
		}
		return n, nil
	case bool:
		return nil, fmt.Errorf("expected an integer, got %v", v)
	}
	return data, nil
}
