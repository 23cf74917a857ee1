/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entityservice

import (
	"fmt"

	"github.com/tiendc/go-deepcopy"

	"github.com/suparena/entityservice/errors"
	"github.com/suparena/entityservice/storagemodels"
)

// NormalizeEntity returns a deep copy of doc whose identity is stored under storagemodels.IDKey.
// A missing, nil or empty identity in idField is replaced by newID(). Numeric identities are
// rendered in decimal form. doc itself is never modified.
func NormalizeEntity(doc storagemodels.Entity, idField string, newID func() string) (storagemodels.Entity, error) {
	if idField == "" {
		idField = storagemodels.IDKey
	}

	entity := storagemodels.Entity{}
	if doc != nil {
		if err := deepcopy.Copy(&entity, doc); err != nil {
			return nil, fmt.Errorf("copy entity: %w", err)
		}
	}

	switch v := entity[idField]; v {
	case nil, "":
		entity[idField] = newID()
	default:
		id, ok := storagemodels.IDString(v)
		if !ok {
			return nil, errors.NewValidationError(idField, fmt.Sprintf("unsupported identity value %v", v))
		}
		entity[idField] = id
	}

	if idField != storagemodels.IDKey {
		entity[storagemodels.IDKey] = entity[idField]
		delete(entity, idField)
	}
	return entity, nil
}

// NormalizeEntity applies the service identity settings to doc.
func (s *Service) NormalizeEntity(doc storagemodels.Entity) (storagemodels.Entity, error) {
	return NormalizeEntity(doc, s.settings.IDField, s.newID)
}
