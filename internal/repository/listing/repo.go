package listing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/tytac116/PropMatch/internal/domain"
)

const selectColumns = `id, title, description, bedrooms, bathrooms, property_type,
	price, area_sqm, status, city, neighborhood, street, features, points_of_interest, images`

// PoolConfig bounds the connection pool. Zero values fall back to the
// tuning below.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Repo reads property listings from Postgres. The ranking pipeline never
// writes listings; ingestion happens out of process.
type Repo struct {
	db *sql.DB
}

// New opens a pooled Postgres connection and verifies it with a ping.
func New(dsn string, pool PoolConfig) (*Repo, error) {
	if pool.MaxOpenConns <= 0 {
		pool.MaxOpenConns = 10
	}
	if pool.MaxIdleConns <= 0 {
		pool.MaxIdleConns = 5
	}
	if pool.ConnMaxLifetime <= 0 {
		pool.ConnMaxLifetime = 5 * time.Minute
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Repo{db: db}, nil
}

// NewWithDB wraps an existing connection (test-only).
func NewWithDB(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Close releases the connection pool.
func (r *Repo) Close() error {
	return r.db.Close()
}

// Ping checks connectivity for health reporting.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// GetByID fetches a single listing. Returns domain.ErrListingNotFound
// when the ID is unknown.
func (r *Repo) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM properties WHERE id = $1`, id)

	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrListingNotFound
		}
		return nil, fmt.Errorf("get listing %s: %w", id, err)
	}
	return l, nil
}

// GetByIDs fetches listings for the given IDs in one batched read.
// Missing IDs are silently absent from the result; callers join by ID.
func (r *Repo) GetByIDs(ctx context.Context, ids []string) ([]*domain.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM properties WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get listings batch: %w", err)
	}
	defer rows.Close()

	return collectListings(rows)
}

// All streams the full listing corpus, ordered by ID for determinism.
// Used to build the lexical index and the location gazetteer.
func (r *Repo) All(ctx context.Context) ([]*domain.Listing, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM properties ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list all listings: %w", err)
	}
	defer rows.Close()

	return collectListings(rows)
}

// Count returns the total number of listings.
func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM properties`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count listings: %w", err)
	}
	return n, nil
}

func collectListings(rows *sql.Rows) ([]*domain.Listing, error) {
	var listings []*domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing row: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listing rows: %w", err)
	}
	return listings, nil
}
