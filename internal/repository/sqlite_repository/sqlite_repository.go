package sqlite_repository

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"sumai_assistant/internal/domain"
	"sumai_assistant/internal/lib/metrics"
	"sumai_assistant/internal/repository"
	"sumai_assistant/internal/services/normalizer"
)

// SQLiteRepository — объявления в файле SQLite (формат исходного датасета).
type SQLiteRepository struct {
	db      *sqlx.DB
	log     *slog.Logger
	metrics *metrics.CallMetrics
}

// Open открывает базу SQLite по пути к файлу.
func Open(path string, log *slog.Logger, m *metrics.CallMetrics) (*SQLiteRepository, error) {
	const op = "sqlite_repository.Open"

	if dir := filepath.Dir(path); path != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// один писатель: SQLite не любит конкурентные записи
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &SQLiteRepository{db: db, log: log, metrics: m}, nil
}

func (r *SQLiteRepository) Search(ctx context.Context, reqs domain.RequirementSet, limit int) (_ []normalizer.RawRecord, err error) {
	const op = "SQLiteRepository.Search"

	timer := r.metrics.StartTimer(metrics.ServiceLookup)
	defer func() { timer.Stop(err) }()

	query, args := repository.SearchQuery(repository.SQLite, reqs, limit)

	var listings []repository.ListingRow
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	records := make([]normalizer.RawRecord, len(listings))
	for i, l := range listings {
		records[i] = l.Raw()
	}

	r.log.Debug("listings found", slog.String("op", op), slog.Int("count", len(records)))
	return records, nil
}

func (r *SQLiteRepository) Addresses(ctx context.Context, term string, limit int) (_ []string, err error) {
	const op = "SQLiteRepository.Addresses"

	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrEmptyTerm)
	}

	timer := r.metrics.StartTimer(metrics.ServiceLookup)
	defer func() { timer.Stop(err) }()

	query, args := repository.AddressesQuery(repository.SQLite, term, limit)

	var addresses []string
	if err := r.db.SelectContext(ctx, &addresses, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return addresses, nil
}

func (r *SQLiteRepository) LocationCandidates(ctx context.Context, station string, limit int) (_ []domain.LocationCandidate, err error) {
	const op = "SQLiteRepository.LocationCandidates"

	station = domain.NormalizeStation(station)
	if station == "" {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrEmptyTerm)
	}

	timer := r.metrics.StartTimer(metrics.ServiceLookup)
	defer func() { timer.Stop(err) }()

	query, args := repository.LocationRowsQuery(repository.SQLite, station, repository.LocationScanLimit)

	var rows []repository.LocationRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return repository.AggregateCandidates(rows, limit), nil
}

func (r *SQLiteRepository) EnsureSchema(ctx context.Context, reset bool) error {
	const op = "SQLiteRepository.EnsureSchema"

	statements := repository.SchemaStatements(repository.SQLite)
	if reset {
		statements = append([]string{repository.DropStatement()}, statements...)
	}

	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

// InsertListings вставляет объявления в одной транзакции.
func (r *SQLiteRepository) InsertListings(ctx context.Context, listings []repository.ListingRow) (int, error) {
	const op = "SQLiteRepository.InsertListings"

	if len(listings) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, repository.InsertQuery(repository.SQLite))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	inserted := 0
	for _, l := range listings {
		res, err := stmt.ExecContext(ctx, l.Values()...)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return inserted, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
