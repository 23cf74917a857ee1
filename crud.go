/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entityservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/suparena/entityservice/errors"
	"github.com/suparena/entityservice/storagemodels"
)

// Page is the result of the list action.
type Page struct {
	Rows       []storagemodels.Entity `json:"rows"`
	Total      int                    `json:"total"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"pageSize"`
	TotalPages int                    `json:"totalPages"`
}

// Get returns the entity with the given id, or nil when it does not exist.
func (s *Service) Get(ctx context.Context, id string) (e storagemodels.Entity, err error) {
	defer s.metrics.observe(s.fullName, "get", time.Now(), &err)

	adapter, err := s.store()
	if err != nil {
		return nil, err
	}
	return adapter.FindByID(ctx, id)
}

// GetMany returns the existing subset of ids.
func (s *Service) GetMany(ctx context.Context, ids []string) (rs storagemodels.ResultSet, err error) {
	defer s.metrics.observe(s.fullName, "getMany", time.Now(), &err)

	adapter, err := s.store()
	if err != nil {
		return nil, err
	}
	return adapter.FindByIDs(ctx, ids)
}

func (s *Service) List(ctx context.Context) (rs storagemodels.ResultSet, err error) {
	defer s.metrics.observe(s.fullName, "list", time.Now(), &err)

	adapter, err := s.store()
	if err != nil {
		return nil, err
	}
	return adapter.List(ctx)
}

// Find passes q to the adapter, clamping its limit to Settings.MaxLimit when one is set.
func (s *Service) Find(ctx context.Context, q storagemodels.Query) (rs storagemodels.ResultSet, err error) {
	defer s.metrics.observe(s.fullName, "find", time.Now(), &err)

	adapter, err := s.store()
	if err != nil {
		return nil, err
	}
	if limit := s.settings.MaxLimit; limit > 0 && (q.Limit <= 0 || q.Limit > limit) {
		q.Limit = limit
	}
	return adapter.Find(ctx, q)
}

// Page lists entities in ascending orderBy order (identity order when empty) one page at a time.
func (s *Service) Page(ctx context.Context, page, pageSize int, orderBy []string) (p *Page, err error) {
	defer s.metrics.observe(s.fullName, "page", time.Now(), &err)

	adapter, err := s.store()
	if err != nil {
		return nil, err
	}

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.settings.PageSize
	}
	if pageSize > s.settings.MaxPageSize {
		pageSize = s.settings.MaxPageSize
	}

	rs, err := adapter.List(ctx)
	if err != nil {
		return nil, err
	}
	rows := rs.Ordered(orderBy)

	total := len(rows)
	totalPages := (total + pageSize - 1) / pageSize

	// Pages past the end are empty. The offset is only computed for pages that exist.
	start, end := total, total
	if page-1 < totalPages {
		start = (page - 1) * pageSize
		end = min(start+pageSize, total)
	}

	return &Page{
		Rows:       rows[start:end],
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Create validates and normalizes doc, persists it and notifies the change.
func (s *Service) Create(ctx context.Context, doc storagemodels.Entity) (e storagemodels.Entity, err error) {
	defer s.metrics.observe(s.fullName, "create", time.Now(), &err)

	adapter, err := s.store()
	if err != nil {
		return nil, err
	}
	if err := s.validateEntity(ctx, doc); err != nil {
		return nil, err
	}

	entity, err := s.NormalizeEntity(doc)
	if err != nil {
		return nil, err
	}

	created, err := adapter.Create(ctx, entity)
	if err != nil {
		return nil, err
	}

	s.entityChanged(ctx, eventCreated, created)
	return created, nil
}

// Update merges values into the entity at id and notifies the change.
func (s *Service) Update(ctx context.Context, id string, values storagemodels.Entity) (e storagemodels.Entity, err error) {
	defer s.metrics.observe(s.fullName, "update", time.Now(), &err)

	adapter, err := s.store()
	if err != nil {
		return nil, err
	}

	updated, err := adapter.Update(ctx, id, values)
	if err != nil {
		return nil, err
	}

	s.entityChanged(ctx, eventUpdated, updated)
	return updated, nil
}

// Delete removes the entity at id and returns its last state. The removed notification fires
// even when nothing existed.
func (s *Service) Delete(ctx context.Context, id string) (e storagemodels.Entity, err error) {
	defer s.metrics.observe(s.fullName, "delete", time.Now(), &err)

	adapter, err := s.store()
	if err != nil {
		return nil, err
	}

	deleted, err := adapter.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	s.entityChanged(ctx, eventRemoved, deleted)
	return deleted, nil
}

func (s *Service) validateEntity(ctx context.Context, doc storagemodels.Entity) error {
	if s.schema != nil {
		result, err := s.schema.Validate(gojsonschema.NewGoLoader(doc))
		if err != nil {
			return errors.NewValidationError("doc", err.Error())
		}
		if !result.Valid() {
			msgs := make([]string, 0, len(result.Errors()))
			for _, desc := range result.Errors() {
				msgs = append(msgs, desc.String())
			}
			return errors.NewValidationError("doc", strings.Join(msgs, "; "))
		}
	}

	if s.validator != nil {
		if err := s.validator(ctx, doc); err != nil {
			if errors.IsValidationError(err) {
				return err
			}
			return errors.NewValidationError("doc", fmt.Sprintf("entity validation error: %v", err))
		}
	}
	return nil
}
