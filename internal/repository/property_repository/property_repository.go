package property_repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sumai_assistant/internal/config"
	"sumai_assistant/internal/domain"
	"sumai_assistant/internal/lib/metrics"
	"sumai_assistant/internal/repository"
	"sumai_assistant/internal/services/normalizer"
)

// PropertyRepository — объявления в PostgreSQL.
type PropertyRepository struct {
	db      *pgxpool.Pool
	log     *slog.Logger
	metrics *metrics.CallMetrics
}

func NewPropertyRepository(db *pgxpool.Pool, log *slog.Logger, m *metrics.CallMetrics) *PropertyRepository {
	return &PropertyRepository{db: db, log: log, metrics: m}
}

// Connect открывает пул соединений и проверяет доступность базы.
func Connect(ctx context.Context, cfg config.StorageConfig) (*pgxpool.Pool, error) {
	const op = "property_repository.Connect"

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}
	return pool, nil
}

// Search — объявления по критериям, сырыми записями (цены в иенах).
func (r *PropertyRepository) Search(ctx context.Context, reqs domain.RequirementSet, limit int) (_ []normalizer.RawRecord, err error) {
	const op = "PropertyRepository.Search"

	timer := r.metrics.StartTimer(metrics.ServiceLookup)
	defer func() { timer.Stop(err) }()

	query, args := repository.SearchQuery(repository.Postgres, reqs, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	listings, err := pgx.CollectRows(rows, pgx.RowToStructByName[repository.ListingRow])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	records := make([]normalizer.RawRecord, len(listings))
	for i, l := range listings {
		records[i] = l.Raw()
	}

	r.log.Debug("listings found", slog.String("op", op), slog.Int("count", len(records)))
	return records, nil
}

// Addresses — адреса объявлений, в адресе или станции которых встречается термин.
func (r *PropertyRepository) Addresses(ctx context.Context, term string, limit int) (_ []string, err error) {
	const op = "PropertyRepository.Addresses"

	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrEmptyTerm)
	}

	timer := r.metrics.StartTimer(metrics.ServiceLookup)
	defer func() { timer.Stop(err) }()

	query, args := repository.AddressesQuery(repository.Postgres, term, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	addresses, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return addresses, nil
}

// LocationCandidates — варианты (префектура, город, станция) для названия станции.
func (r *PropertyRepository) LocationCandidates(ctx context.Context, station string, limit int) (_ []domain.LocationCandidate, err error) {
	const op = "PropertyRepository.LocationCandidates"

	station = domain.NormalizeStation(station)
	if station == "" {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrEmptyTerm)
	}

	timer := r.metrics.StartTimer(metrics.ServiceLookup)
	defer func() { timer.Stop(err) }()

	query, args := repository.LocationRowsQuery(repository.Postgres, station, repository.LocationScanLimit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	locations, err := pgx.CollectRows(rows, pgx.RowToStructByName[repository.LocationRow])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return repository.AggregateCandidates(locations, limit), nil
}

// EnsureSchema создаёт таблицу объявлений; reset сначала удаляет существующую.
func (r *PropertyRepository) EnsureSchema(ctx context.Context, reset bool) error {
	const op = "PropertyRepository.EnsureSchema"

	statements := repository.SchemaStatements(repository.Postgres)
	if reset {
		statements = append([]string{repository.DropStatement()}, statements...)
	}

	for _, stmt := range statements {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

// InsertListings вставляет объявления одним батчем и возвращает число новых строк.
func (r *PropertyRepository) InsertListings(ctx context.Context, listings []repository.ListingRow) (int, error) {
	const op = "PropertyRepository.InsertListings"

	if len(listings) == 0 {
		return 0, nil
	}

	query := repository.InsertQuery(repository.Postgres)
	batch := &pgx.Batch{}
	for _, l := range listings {
		batch.Queue(query, l.Values()...)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range listings {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("%s: %w", op, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (r *PropertyRepository) Close() error {
	r.db.Close()
	return nil
}
