/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package pgdoc

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/suparena/entityservice/datastore"
	"github.com/suparena/entityservice/errors"
	"github.com/suparena/entityservice/registry"
	"github.com/suparena/entityservice/storagemodels"
)

const (
	// DriverName is the registry name of the PostgreSQL document adapter
	DriverName = "postgres"

	// DefaultSchema is used when the adapter is built with an empty schema
	DefaultSchema = "public"
)

// ErrMissingDSN is returned by Init when the adapter was built without a connection string
var ErrMissingDSN = errors.NewMissingCredentialError(DriverName, "dsn", 1)

func init() {
	registry.Register(DriverName, func(c registry.Credentials) (datastore.Adapter, error) {
		return New(c.Primary, c.Secondary), nil
	})
}

// Adapter implements datastore.Adapter on a PostgreSQL table of JSONB documents:
//
//	CREATE TABLE <schema>.<collection> (id text PRIMARY KEY, doc jsonb NOT NULL)
//
// The table is created on Connect when it does not exist.
type Adapter struct {
	dsn    string
	schema string

	mu     sync.RWMutex
	db     *sql.DB
	table  string
	logger *zap.Logger
}

// New constructs a PostgreSQL adapter from a connection string and a schema name.
func New(dsn, schema string) *Adapter {
	if schema == "" {
		schema = DefaultSchema
	}
	return &Adapter{
		dsn:    dsn,
		schema: schema,
		logger: zap.NewNop(),
	}
}

func (a *Adapter) Init(info datastore.ServiceInfo) error {
	if a.dsn == "" {
		return ErrMissingDSN
	}
	if err := datastore.ValidateServiceInfo(info); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.table = pq.QuoteIdentifier(a.schema) + "." + pq.QuoteIdentifier(info.Collection)
	a.logger = info.LoggerOrNop().With(zap.String("driver", DriverName), zap.String("table", a.table))
	return nil
}

func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	db, err := sql.Open("postgres", a.dsn)
	if err != nil {
		return errors.NewStoreError("connect", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return errors.NewStoreError("connect", describe(err))
	}

	ddl := `CREATE TABLE IF NOT EXISTS ` + a.table + ` (id text PRIMARY KEY, doc jsonb NOT NULL)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		db.Close()
		return errors.NewStoreError("connect", describe(err))
	}

	a.db = db
	a.logger.Info("PostgreSQL connection established")
	return nil
}

func (a *Adapter) Disconnect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return errors.NewStoreError("disconnect", err)
}

func (a *Adapter) handle(op string) (*sql.DB, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.db == nil {
		return nil, errors.NewStoreError(op, errors.ErrNotConnected)
	}
	return a.db, nil
}

func (a *Adapter) List(ctx context.Context) (storagemodels.ResultSet, error) {
	return a.Find(ctx, storagemodels.Query{})
}

func (a *Adapter) Find(ctx context.Context, q storagemodels.Query) (storagemodels.ResultSet, error) {
	db, err := a.handle("find")
	if err != nil {
		return nil, err
	}
	stmt, args, err := buildSelect(a.table, q)
	if err != nil {
		return nil, errors.NewStoreError("find", err)
	}
	return a.query(ctx, db, "find", stmt, args...)
}

func (a *Adapter) FindByID(ctx context.Context, id string) (storagemodels.Entity, error) {
	db, err := a.handle("findById")
	if err != nil {
		return nil, err
	}

	var raw []byte
	err = db.QueryRowContext(ctx, `SELECT doc FROM `+a.table+` WHERE id = $1`, id).Scan(&raw)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStoreError("findById", describe(err))
	}
	return decode("findById", raw)
}

func (a *Adapter) FindByIDs(ctx context.Context, ids []string) (storagemodels.ResultSet, error) {
	db, err := a.handle("findByIds")
	if err != nil {
		return nil, err
	}
	return a.query(ctx, db, "findByIds", `SELECT doc FROM `+a.table+` WHERE id = ANY($1)`, pq.Array(ids))
}

func (a *Adapter) Create(ctx context.Context, entity storagemodels.Entity) (storagemodels.Entity, error) {
	db, err := a.handle("create")
	if err != nil {
		return nil, err
	}
	id, ok := entity.ID()
	if !ok {
		return nil, errors.NewStoreError("create", errors.NewValidationError(storagemodels.IDKey, "entity has no identity"))
	}

	doc := make(map[string]any, len(entity))
	for k, v := range entity {
		doc[k] = v
	}
	doc[storagemodels.IDKey] = id
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.NewStoreError("create", err)
	}

	var raw []byte
	err = db.QueryRowContext(ctx,
		`INSERT INTO `+a.table+` (id, doc) VALUES ($1, $2::jsonb)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc
		RETURNING doc`, id, string(payload)).Scan(&raw)
	if err != nil {
		return nil, errors.NewStoreError("create", describe(err))
	}
	return decode("create", raw)
}

func (a *Adapter) Update(ctx context.Context, id string, values storagemodels.Entity) (storagemodels.Entity, error) {
	db, err := a.handle("update")
	if err != nil {
		return nil, err
	}

	patch := make(map[string]any, len(values))
	for k, v := range values {
		if k == storagemodels.IDKey {
			continue
		}
		patch[k] = v
	}
	payload, err := json.Marshal(patch)
	if err != nil {
		return nil, errors.NewStoreError("update", err)
	}

	var raw []byte
	err = db.QueryRowContext(ctx,
		`UPDATE `+a.table+` SET doc = doc || $2::jsonb WHERE id = $1 RETURNING doc`,
		id, string(payload)).Scan(&raw)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewStoreError("update", errors.NewNotFoundError(a.table, id))
	}
	if err != nil {
		return nil, errors.NewStoreError("update", describe(err))
	}
	return decode("update", raw)
}

func (a *Adapter) Delete(ctx context.Context, id string) (storagemodels.Entity, error) {
	db, err := a.handle("delete")
	if err != nil {
		return nil, err
	}

	var raw []byte
	err = db.QueryRowContext(ctx, `DELETE FROM `+a.table+` WHERE id = $1 RETURNING doc`, id).Scan(&raw)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStoreError("delete", describe(err))
	}
	return decode("delete", raw)
}

func (a *Adapter) query(ctx context.Context, db *sql.DB, op, stmt string, args ...any) (storagemodels.ResultSet, error) {
	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.NewStoreError(op, describe(err))
	}
	defer rows.Close()

	rs := make(storagemodels.ResultSet)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, errors.NewStoreError(op, err)
		}
		e, err := decode(op, raw)
		if err != nil {
			return nil, err
		}
		rs.Add(e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError(op, describe(err))
	}
	return rs, nil
}

func decode(op string, raw []byte) (storagemodels.Entity, error) {
	var e storagemodels.Entity
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, errors.NewStoreError(op, fmt.Errorf("failed to decode document: %w", err))
	}
	return e, nil
}

// describe adds the SQLSTATE condition name to PostgreSQL errors.
func describe(err error) error {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return fmt.Errorf("%s (%s): %w", pqErr.Message, pqErr.Code.Name(), err)
	}
	return err
}
