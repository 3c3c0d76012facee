package orderdesk

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/DroHadTo/Solanashop/metrics"
)

const uniqueViolation = "23505"

var migrations = []struct {
	name string
	sql  string
}{
	{
		name: "001_create_orders",
		sql: `
		CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			reference VARCHAR(44) NOT NULL UNIQUE,
			signature VARCHAR(88) NOT NULL,
			total NUMERIC(20, 6) NOT NULL,
			items JSONB NOT NULL,
			status VARCHAR(32) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	{
		name: "002_index_orders_created_at",
		sql:  `CREATE INDEX IF NOT EXISTS orders_created_at_idx ON orders (created_at)`,
	},
}

// OpenPostgres opens and pings a lib/pq connection pool
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)
	return db, nil
}

// Migrate applies the schema migrations that have not run yet
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range migrations {
		var applied bool
		if err := db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM migrations WHERE name = $1)`, m.name,
		).Scan(&applied); err != nil {
			return fmt.Errorf("failed to check migration %s: %w", m.name, err)
		}
		if applied {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", m.name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO migrations (name) VALUES ($1)`, m.name); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// PostgresStore keeps orders in PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, order *Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (id, reference, signature, total, items, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, order.ID, order.Reference, order.Signature, order.Total.String(), items, order.Status, order.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateReference
	}
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Order, error) {
	return s.scan(s.db.QueryRowContext(ctx, `
		SELECT id, reference, signature, total, items, status, created_at
		FROM orders WHERE id = $1
	`, id))
}

func (s *PostgresStore) GetByReference(ctx context.Context, reference string) (*Order, error) {
	return s.scan(s.db.QueryRowContext(ctx, `
		SELECT id, reference, signature, total, items, status, created_at
		FROM orders WHERE reference = $1
	`, reference))
}

func (s *PostgresStore) scan(row *sql.Row) (*Order, error) {
	var (
		order Order
		total string
		items []byte
	)
	err := row.Scan(&order.ID, &order.Reference, &order.Signature, &total, &items, &order.Status, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if order.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("invalid stored total %q: %w", total, err)
	}
	if err := json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("invalid stored items: %w", err)
	}
	return &order, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// CollectPoolStats publishes connection pool gauges until ctx is done
func CollectPoolStats(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			metrics.DBConnectionsActive.Set(float64(stats.InUse))
			metrics.DBConnectionsIdle.Set(float64(stats.Idle))
		}
	}
}
