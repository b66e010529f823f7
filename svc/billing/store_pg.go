package billing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/billsync/pkg/pg"
	"github.com/dmitrymomot/billsync/pkg/subscription"
)

const subscriptionsTable = "subscriptions"

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PGStore persists subscription records in Postgres.
type PGStore struct {
	db        dbtx
	pool      beginner
	forUpdate bool
}

var (
	_ subscription.Store      = (*PGStore)(nil)
	_ subscription.Transactor = (*PGStore)(nil)
)

// NewPGStore creates a store on top of pool. Panics if pool is nil.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	if pool == nil {
		panic("billing: postgres pool cannot be nil")
	}
	return &PGStore{db: pool, pool: pool}
}

// Upsert inserts rec or replaces the builder-owned columns of the existing row.
// Stored billing periods are kept; they are set by paid invoices.
func (s *PGStore) Upsert(ctx context.Context, rec *subscription.Record) error {
	args := make([]any, len(subscription.Columns))
	for i, c := range subscription.Columns {
		args[i] = sqlValue(rec.Value(c))
	}
	if _, err := s.db.Exec(ctx, upsertQuery, args...); err != nil {
		return storeError("upsert", rec.StripeSubscriptionID, err)
	}
	return nil
}

// Update writes fields to an existing row.
// It returns subscription.ErrSubscriptionNotFound when no row matches.
func (s *PGStore) Update(ctx context.Context, id string, fields subscription.Fields) error {
	if err := fields.Validate(); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}

	query, args := updateQuery(id, fields)
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return storeError("update", id, err)
	}
	if tag.RowsAffected() == 0 {
		return subscription.ErrSubscriptionNotFound
	}
	return nil
}

// Get reads the requested columns of a row, or all of them.
// A missing row yields (nil, nil). Inside WithinTx the row is locked.
func (s *PGStore) Get(ctx context.Context, id string, columns ...subscription.Column) (*subscription.Record, error) {
	if len(columns) == 0 {
		columns = subscription.Columns
	}
	fields := subscription.Fields{}
	for _, c := range columns {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %q", subscription.ErrUnknownColumn, c)
		}
		if c != subscription.ColumnStripeSubscriptionID {
			fields[c] = nil
		}
	}

	cols := sortedColumns(fields)
	dest := make([]any, len(cols))
	for i, c := range cols {
		dest[i] = scanTarget(c)
	}

	err := s.db.QueryRow(ctx, selectQuery(cols, s.forUpdate), id).Scan(dest...)
	if pg.IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("get", id, err)
	}

	for i, c := range cols {
		fields[c] = scanned(dest[i])
	}
	rec := &subscription.Record{StripeSubscriptionID: id}
	if err := rec.Apply(fields); err != nil {
		return nil, err
	}
	return rec, nil
}

// WithinTx runs fn in a transaction; reads through the store passed to fn
// lock the row until commit.
func (s *PGStore) WithinTx(ctx context.Context, fn func(ctx context.Context, store subscription.Store) error) error {
	if s.pool == nil {
		return fn(ctx, s)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &PGStore{db: tx, forUpdate: true})
	})
}

func storeError(op, id string, err error) error {
	if pg.IsCheckViolationError(err) {
		return errors.Join(ErrConstraintViolation, fmt.Errorf("%s %s: %w", op, id, err))
	}
	return errors.Join(ErrStoreQuery, fmt.Errorf("%s %s: %w", op, id, err))
}

var upsertQuery = buildUpsertQuery()

func buildUpsertQuery() string {
	names := make([]string, len(subscription.Columns))
	params := make([]string, len(subscription.Columns))
	for i, c := range subscription.Columns {
		names[i] = string(c)
		params[i] = fmt.Sprintf("$%d", i+1)
	}

	built := (&subscription.Record{}).BuiltFields()
	sets := make([]string, 0, len(built)+2)
	for _, c := range sortedColumns(built) {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	for _, c := range []subscription.Column{subscription.ColumnCurrentPeriodStart, subscription.ColumnCurrentPeriodEnd} {
		sets = append(sets, fmt.Sprintf("%[1]s = COALESCE(%[2]s.%[1]s, EXCLUDED.%[1]s)", c, subscriptionsTable))
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		subscriptionsTable,
		strings.Join(names, ", "),
		strings.Join(params, ", "),
		subscription.ColumnStripeSubscriptionID,
		strings.Join(sets, ", "),
	)
}

func updateQuery(id string, fields subscription.Fields) (string, []any) {
	cols := sortedColumns(fields)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", c, i+1)
		args = append(args, sqlValue(fields[c]))
	}
	args = append(args, id)
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		subscriptionsTable, strings.Join(sets, ", "), subscription.ColumnStripeSubscriptionID, len(args),
	), args
}

func selectQuery(cols []subscription.Column, forUpdate bool) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = string(c)
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		strings.Join(names, ", "), subscriptionsTable, subscription.ColumnStripeSubscriptionID)
	if forUpdate {
		q += " FOR UPDATE"
	}
	return q
}

func sortedColumns(fields subscription.Fields) []subscription.Column {
	cols := make([]subscription.Column, 0, len(fields))
	for c := range fields {
		cols = append(cols, c)
	}
	slices.Sort(cols)
	return cols
}

// sqlValue converts domain values to types pgx encodes natively.
func sqlValue(v any) any {
	switch t := v.(type) {
	case subscription.Status:
		return string(t)
	case subscription.BillingInterval:
		return string(t)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC()
	case time.Time:
		return t.UTC()
	}
	return v
}

func scanTarget(c subscription.Column) any {
	switch {
	case c.IsTime():
		return new(*time.Time)
	case c == subscription.ColumnUpdatedAt:
		return new(time.Time)
	case c == subscription.ColumnAmount:
		return new(int64)
	}
	return new(string)
}

func scanned(dest any) any {
	switch v := dest.(type) {
	case **time.Time:
		return *v
	case *time.Time:
		return *v
	case *int64:
		return *v
	case *string:
		return *v
	}
	return nil
}
