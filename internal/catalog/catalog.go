package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Storage tuning per deployment on resource-constrained SD-card devices:
// a larger page size for BLOB locality, a generous page cache, and
// NORMAL synchronous durability (trades a small crash-window for
// reduced SD-card wear relative to FULL).
const (
	pageSizeBytes     = 16384
	cachePagesKiB     = -65536 // negative = KiB, per sqlite PRAGMA cache_size convention
	busyTimeoutMillis = 5000
)

// integrityProbeTimeout bounds the startup integrity check. A timeout is
// treated the same as a failed check — the store is rebuilt from scratch.
const integrityProbeTimeout = 5 * time.Second

// Catalog is the durable store and query layer for photos and settings.
// It serializes concurrent mutation through a single *sql.DB connection
// (sole-writer pattern) and is the only component that mutates persistent
// engine state.
type Catalog struct {
	db      *sql.DB
	path    string
	logger  *slog.Logger
	nowFunc func() time.Time // injectable for deterministic tests
}

// Open opens the catalog at path, verifying integrity and applying storage
// tuning. A corrupt or unreadable store is deleted and recreated — an
// empty catalog is a valid recovery state that triggers a full resync.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := verifyOrRebuild(ctx, path, logger); err != nil {
		return nil, err
	}

	db, err := openTuned(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: opening %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("catalog initialized", slog.String("path", path))

	return &Catalog{db: db, path: path, logger: logger, nowFunc: time.Now}, nil
}

// Close releases the underlying database handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func openTuned(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"+
			"&_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)"+
			"&_pragma=page_size(%d)&_pragma=cache_size(%d)",
		path, busyTimeoutMillis, pageSizeBytes, cachePagesKiB,
	)

	return sql.Open("sqlite", dsn)
}

// verifyOrRebuild runs a bounded integrity probe against an existing
// database file. If the file does not exist, there is nothing to verify.
// On corruption or timeout, the file (and its WAL siblings) are removed so
// the caller starts from an empty catalog.
func verifyOrRebuild(ctx context.Context, path string, logger *slog.Logger) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, integrityProbeTimeout)
	defer cancel()

	ok := probeIntegrity(probeCtx, path)
	if ok {
		return nil
	}

	logger.Warn("catalog failed integrity check, rebuilding", slog.String("path", path))

	for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
		_ = os.Remove(path + suffix)
	}

	return nil
}

func probeIntegrity(ctx context.Context, path string) bool {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return false
	}
	defer db.Close()

	var result string

	row := db.QueryRowContext(ctx, "PRAGMA integrity_check")
	if err := row.Scan(&result); err != nil {
		return false
	}

	return result == "ok"
}

// UpsertPhotos inserts or updates a batch of photos under a single
// transaction. Any failure rolls back the whole batch.
func (c *Catalog) UpsertPhotos(ctx context.Context, photos []Photo) error {
	if len(photos) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: beginning upsert transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	for i := range photos {
		if err := upsertOne(ctx, tx, &photos[i]); err != nil {
			return fmt.Errorf("catalog: upserting photo %s: %w", photos[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog: committing upsert: %w", err)
	}

	return nil
}

func upsertOne(ctx context.Context, tx *sql.Tx, p *Photo) error {
	const stmt = `INSERT INTO photos
		(id, provider_key, container_key, filename, creation_time, width, height,
		 latitude, longitude, location_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		 provider_key = excluded.provider_key,
		 container_key = excluded.container_key,
		 filename = excluded.filename,
		 creation_time = excluded.creation_time,
		 width = excluded.width,
		 height = excluded.height,
		 latitude = excluded.latitude,
		 longitude = excluded.longitude,
		 location_name = excluded.location_name`

	_, err := tx.ExecContext(ctx, stmt,
		p.ID, p.ProviderKey, p.ContainerKey, p.Filename, p.CreationTime.UnixMilli(),
		nullableInt(p.Width), nullableInt(p.Height), p.Latitude, p.Longitude,
		nullableString(p.LocationName),
	)

	return err
}

// DeletePhoto removes a photo's row in a transaction and, once that has
// committed, unlinks its cache file if it has one (I4). A failed unlink is
// logged, not returned, and leaves an orphaned file.
func (c *Catalog) DeletePhoto(ctx context.Context, photoID string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: beginning delete transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	var filePath sql.NullString

	row := tx.QueryRowContext(ctx, `SELECT file_path FROM photos WHERE id = ?`, photoID)
	if err := row.Scan(&filePath); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("catalog: reading file path for delete: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, photoID); err != nil {
		return fmt.Errorf("catalog: deleting photo row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog: committing delete: %w", err)
	}

	if filePath.Valid && filePath.String != "" {
		if err := os.Remove(filePath.String); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("failed to unlink cache file on delete",
				slog.String("photo_id", photoID),
				slog.String("path", filePath.String),
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

// MarkViewed updates last_viewed_at if now is strictly greater than the
// current value (I5, monotonic per photo). Errors are logged and swallowed
// — fire-and-forget per the display dispatcher's contract.
func (c *Catalog) MarkViewed(ctx context.Context, photoID string, now time.Time) {
	const stmt = `UPDATE photos SET last_viewed_at = ?
		WHERE id = ? AND (last_viewed_at IS NULL OR ? > last_viewed_at)`

	if _, err := c.db.ExecContext(ctx, stmt, now.UnixMilli(), photoID, now.UnixMilli()); err != nil {
		c.logger.Warn("mark viewed failed",
			slog.String("photo_id", photoID),
			slog.String("error", err.Error()),
		)
	}
}

// ListFetchCandidates returns up to limit photos with no cache payload,
// ordered so never-viewed and then least-recently-viewed photos come first.
func (c *Catalog) ListFetchCandidates(ctx context.Context, limit int) ([]Photo, error) {
	const q = `SELECT id, provider_key, container_key, filename, creation_time,
		width, height, latitude, longitude, location_name, last_viewed_at
		FROM photos WHERE cache_state = 'unset'
		ORDER BY (last_viewed_at IS NOT NULL) ASC, last_viewed_at ASC
		LIMIT ?`

	rows, err := c.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: listing fetch candidates: %w", err)
	}
	defer rows.Close()

	var out []Photo

	for rows.Next() {
		var p Photo

		var width, height sql.NullInt64

		var lat, lon sql.NullFloat64

		var loc sql.NullString

		var lastViewed sql.NullInt64

		var creationMs int64

		if err := rows.Scan(&p.ID, &p.ProviderKey, &p.ContainerKey, &p.Filename, &creationMs,
			&width, &height, &lat, &lon, &loc, &lastViewed); err != nil {
			return nil, fmt.Errorf("catalog: scanning fetch candidate: %w", err)
		}

		p.CreationTime = time.UnixMilli(creationMs)
		applyNullableFields(&p, width, height, lat, lon, loc, lastViewed)

		out = append(out, p)
	}

	return out, rows.Err()
}

// ListEvictionCandidates returns up to limit cached photos ordered by
// ascending last_viewed_at (nulls last — never-viewed photos are the most
// disposable only once nothing viewed remains).
func (c *Catalog) ListEvictionCandidates(ctx context.Context, limit int) ([]Photo, error) {
	const q = `SELECT id, cache_state, file_path, size_bytes
		FROM photos WHERE cache_state != 'unset'
		ORDER BY (last_viewed_at IS NULL) ASC, last_viewed_at ASC
		LIMIT ?`

	rows, err := c.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: listing eviction candidates: %w", err)
	}
	defer rows.Close()

	var out []Photo

	for rows.Next() {
		var p Photo

		var filePath sql.NullString

		var size sql.NullInt64

		var state string

		if err := rows.Scan(&p.ID, &state, &filePath, &size); err != nil {
			return nil, fmt.Errorf("catalog: scanning eviction candidate: %w", err)
		}

		p.CacheState = CacheState(state)
		p.FilePath = filePath.String
		p.SizeBytes = size.Int64

		out = append(out, p)
	}

	return out, rows.Err()
}

// NextDisplayCandidate returns one cached photo per the configured sort
// policy. Unviewed photos always precede viewed photos ("rotation
// priority"). Returns (nil, nil) if no cached photo exists.
func (c *Catalog) NextDisplayCandidate(ctx context.Context, mode SortMode) (*Photo, error) {
	if mode == SortRandom {
		return c.nextRandomCandidate(ctx)
	}

	orderBy := "photo_id_fallback"

	switch mode {
	case SortNewest:
		orderBy = "creation_time DESC"
	case SortOldest:
		orderBy = "creation_time ASC"
	default: // SortSequential
		orderBy = "id ASC"
	}

	q := fmt.Sprintf(`SELECT id, provider_key, container_key, filename, creation_time,
		width, height, latitude, longitude, location_name, last_viewed_at,
		cache_state, blob_mime_type, file_path, size_bytes
		FROM photos WHERE cache_state != 'unset'
		ORDER BY (last_viewed_at IS NOT NULL) ASC, %s LIMIT 1`, orderBy)

	return c.scanOneCandidate(ctx, q)
}

func (c *Catalog) nextRandomCandidate(ctx context.Context) (*Photo, error) {
	unviewed, err := c.candidateIDs(ctx, true)
	if err != nil {
		return nil, err
	}

	pool := unviewed

	if len(pool) == 0 {
		viewed, err := c.candidateIDs(ctx, false)
		if err != nil {
			return nil, err
		}

		pool = viewed
	}

	if len(pool) == 0 {
		return nil, nil //nolint:nilnil // sentinel for "no cache candidate"
	}

	id := pool[rand.IntN(len(pool))] //nolint:gosec // selection among display candidates, not a security context

	return c.GetPhoto(ctx, id)
}

func (c *Catalog) candidateIDs(ctx context.Context, unviewedOnly bool) ([]string, error) {
	q := `SELECT id FROM photos WHERE cache_state != 'unset'`
	if unviewedOnly {
		q += ` AND last_viewed_at IS NULL`
	} else {
		q += ` AND last_viewed_at IS NOT NULL`
	}

	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("catalog: listing candidate ids: %w", err)
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// GetPhoto fetches a single photo by id, including its cache payload fields.
// Blob bytes are loaded only when the cache state is blob.
func (c *Catalog) GetPhoto(ctx context.Context, id string) (*Photo, error) {
	const q = `SELECT id, provider_key, container_key, filename, creation_time,
		width, height, latitude, longitude, location_name, last_viewed_at,
		cache_state, blob_mime_type, file_path, size_bytes
		FROM photos WHERE id = ?`

	return c.scanOneCandidate(ctx, q, id)
}

func (c *Catalog) scanOneCandidate(ctx context.Context, q string, args ...any) (*Photo, error) {
	var p Photo

	var width, height sql.NullInt64

	var lat, lon sql.NullFloat64

	var loc, mime, filePath sql.NullString

	var lastViewed, size sql.NullInt64

	var creationMs int64

	var state string

	row := c.db.QueryRowContext(ctx, q, args...)
	err := row.Scan(&p.ID, &p.ProviderKey, &p.ContainerKey, &p.Filename, &creationMs,
		&width, &height, &lat, &lon, &loc, &lastViewed, &state, &mime, &filePath, &size)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // sentinel for "no candidate"
	}

	if err != nil {
		return nil, fmt.Errorf("catalog: scanning photo: %w", err)
	}

	p.CreationTime = time.UnixMilli(creationMs)
	p.CacheState = CacheState(state)
	p.BlobMimeType = mime.String
	p.FilePath = filePath.String
	p.SizeBytes = size.Int64
	applyNullableFields(&p, width, height, lat, lon, loc, lastViewed)

	if p.CacheState == CacheBlob {
		var blob []byte

		row := c.db.QueryRowContext(ctx, `SELECT blob_bytes FROM photos WHERE id = ?`, p.ID)
		if err := row.Scan(&blob); err != nil {
			return nil, fmt.Errorf("catalog: loading blob payload: %w", err)
		}

		p.BlobBytes = blob
	}

	return &p, nil
}

// AttachBlob sets the in-catalog blob payload for a photo, clearing any
// file-mode payload atomically. size_bytes must be positive (I2).
func (c *Catalog) AttachBlob(ctx context.Context, photoID string, data []byte, mimeType string) error {
	if len(data) == 0 {
		return fmt.Errorf("catalog: attaching blob for %s: empty payload", photoID)
	}

	now := c.now().UnixMilli()

	const stmt = `UPDATE photos SET
		cache_state = 'blob', blob_bytes = ?, blob_mime_type = ?, size_bytes = ?, cached_at = ?,
		file_path = NULL
		WHERE id = ?`

	res, err := c.db.ExecContext(ctx, stmt, data, mimeType, len(data), now, photoID)
	if err != nil {
		return fmt.Errorf("catalog: attaching blob: %w", err)
	}

	return requireRowAffected(res, photoID)
}

// AttachFile sets the on-disk payload path for a photo, clearing any blob
// payload atomically. size must be positive (I2).
func (c *Catalog) AttachFile(ctx context.Context, photoID, path string, size int64) error {
	if size <= 0 {
		return fmt.Errorf("catalog: attaching file for %s: non-positive size", photoID)
	}

	now := c.now().UnixMilli()

	const stmt = `UPDATE photos SET
		cache_state = 'file', file_path = ?, size_bytes = ?, cached_at = ?,
		blob_bytes = NULL, blob_mime_type = NULL
		WHERE id = ?`

	res, err := c.db.ExecContext(ctx, stmt, path, size, now, photoID)
	if err != nil {
		return fmt.Errorf("catalog: attaching file: %w", err)
	}

	return requireRowAffected(res, photoID)
}

// ClearCache drops both cache payload forms for a photo, leaving it unset.
// The caller is responsible for unlinking any file payload beforehand.
func (c *Catalog) ClearCache(ctx context.Context, photoID string) error {
	const stmt = `UPDATE photos SET
		cache_state = 'unset', blob_bytes = NULL, blob_mime_type = NULL,
		file_path = NULL, size_bytes = NULL, cached_at = NULL
		WHERE id = ?`

	_, err := c.db.ExecContext(ctx, stmt, photoID)
	if err != nil {
		return fmt.Errorf("catalog: clearing cache: %w", err)
	}

	return nil
}

// CacheBytesTotal returns the authoritative sum of cached payload sizes (I3).
func (c *Catalog) CacheBytesTotal(ctx context.Context) (int64, error) {
	var total sql.NullInt64

	row := c.db.QueryRowContext(ctx, `SELECT SUM(size_bytes) FROM photos WHERE cache_state != 'unset'`)
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("catalog: summing cache bytes: %w", err)
	}

	return total.Int64, nil
}

// CachedCount returns the number of photos with a populated cache payload.
func (c *Catalog) CachedCount(ctx context.Context) (int, error) {
	return c.countWhere(ctx, `cache_state != 'unset'`)
}

// TotalCount returns the total number of photos known to the catalog.
func (c *Catalog) TotalCount(ctx context.Context) (int, error) {
	return c.countWhere(ctx, `1 = 1`)
}

func (c *Catalog) countWhere(ctx context.Context, where string) (int, error) {
	var n int

	row := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM photos WHERE "+where)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("catalog: counting photos: %w", err)
	}

	return n, nil
}

// GetSetting returns the string value for key, or ("", false) if unset.
func (c *Catalog) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string

	row := c.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key)

	err := row.Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("catalog: reading setting %s: %w", key, err)
	}

	return value, true, nil
}

// PutSetting sets a string key/value pair, replacing any existing value.
func (c *Catalog) PutSetting(ctx context.Context, key, value string) error {
	const stmt = `INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`

	if _, err := c.db.ExecContext(ctx, stmt, key, value); err != nil {
		return fmt.Errorf("catalog: writing setting %s: %w", key, err)
	}

	return nil
}

// DeltaTokenKey builds the reserved settings key for a provider's resume
// token (spec: "delta_token:<provider_key>").
func DeltaTokenKey(providerKey string) string {
	return "delta_token:" + providerKey
}

func (c *Catalog) now() time.Time {
	if c.nowFunc != nil {
		return c.nowFunc()
	}

	return time.Now()
}

func requireRowAffected(res sql.Result, photoID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("catalog: checking rows affected: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("catalog: photo %s not found", photoID)
	}

	return nil
}

func nullableInt(v int) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}

	return sql.NullInt64{Int64: int64(v), Valid: true}
}

func nullableString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}

	return sql.NullString{String: v, Valid: true}
}

func applyNullableFields(
	p *Photo, width, height sql.NullInt64, lat, lon sql.NullFloat64, loc sql.NullString, lastViewed sql.NullInt64,
) {
	p.Width = int(width.Int64)
	p.Height = int(height.Int64)

	if lat.Valid {
		v := lat.Float64
		p.Latitude = &v
	}

	if lon.Valid {
		v := lon.Float64
		p.Longitude = &v
	}

	p.LocationName = loc.String

	if lastViewed.Valid {
		t := time.UnixMilli(lastViewed.Int64)
		p.LastViewedAt = &t
	}
}
