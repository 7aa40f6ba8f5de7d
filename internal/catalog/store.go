// Package catalog persists games in SQLite and serves local search: the
// store owns the SQL, the QueryAdapter layers the name-then-summary search
// strategy on top, and the Persister absorbs provider discoveries.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pikestaff/cartridge/internal/game"
)

// gameColumns is the ordered list of columns for SELECT queries.
const gameColumns = `id, igdb_id, name, summary, description, category,
	release_date, rating, rating_count, follows, hypes,
	genres, platforms, greenlight, redlight`

// SearchField selects which column a catalog search matches against.
type SearchField int

// Searchable fields.
const (
	FieldName SearchField = iota
	FieldSummary
)

// Store provides game persistence operations.
type Store struct {
	db *sql.DB
}

// NewStore creates a game store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Search returns games whose field contains term as a substring, most
// reviewed first. Name searches match against the normalized name so
// casing and diacritics are ignored.
func (s *Store) Search(ctx context.Context, term string, field SearchField, limit int) ([]game.Candidate, error) {
	if limit <= 0 {
		limit = 50
	}

	var column, pattern string
	switch field {
	case FieldSummary:
		column = "summary"
		pattern = "%" + escapeLike(term) + "%"
	default:
		column = "normalized_name"
		pattern = "%" + escapeLike(game.NormalizeName(term)) + "%"
	}

	query := `SELECT ` + gameColumns + ` FROM games WHERE ` + column + //nolint:gosec // G202: column is from internal switch, not user input
		` LIKE ? ESCAPE '\' ORDER BY rating_count DESC, name ASC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("searching games: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var results []game.Candidate
	for rows.Next() {
		c, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning game row: %w", err)
		}
		results = append(results, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating game rows: %w", err)
	}
	return results, nil
}

// GetByID retrieves a game by primary key. Returns nil, nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*game.Candidate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = ?`, id)
	c, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting game by id: %w", err)
	}
	return c, nil
}

// GetByIGDBID retrieves a game by its IGDB ID. Returns nil, nil when absent.
func (s *Store) GetByIGDBID(ctx context.Context, igdbID int64) (*game.Candidate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE igdb_id = ?`, igdbID)
	c, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting game by igdb id: %w", err)
	}
	return c, nil
}

// Upsert writes provider candidates into the catalog, keyed by IGDB ID.
// Existing non-empty fields are kept when the incoming value is absent, and
// the local greenlight/redlight flags are never touched. Candidates without
// an IGDB ID or a name are skipped. Returns the number of games written.
func (s *Store) Upsert(ctx context.Context, games []game.Candidate) (int, error) {
	if len(games) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO games (
			igdb_id, name, normalized_name, summary, description, category,
			release_date, rating, rating_count, follows, hypes, genres, platforms,
			last_synced_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(igdb_id) WHERE igdb_id IS NOT NULL DO UPDATE SET
			name = excluded.name,
			normalized_name = excluded.normalized_name,
			summary = CASE WHEN excluded.summary != '' THEN excluded.summary ELSE games.summary END,
			description = CASE WHEN excluded.description != '' THEN excluded.description ELSE games.description END,
			category = excluded.category,
			release_date = COALESCE(excluded.release_date, games.release_date),
			rating = CASE WHEN excluded.rating_count > 0 THEN excluded.rating ELSE games.rating END,
			rating_count = CASE WHEN excluded.rating_count > 0 THEN excluded.rating_count ELSE games.rating_count END,
			follows = CASE WHEN excluded.follows > 0 THEN excluded.follows ELSE games.follows END,
			hypes = CASE WHEN excluded.hypes > 0 THEN excluded.hypes ELSE games.hypes END,
			genres = CASE WHEN excluded.genres != '[]' THEN excluded.genres ELSE games.genres END,
			platforms = CASE WHEN excluded.platforms != '[]' THEN excluded.platforms ELSE games.platforms END,
			last_synced_at = excluded.last_synced_at,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC().Format(time.RFC3339)
	written := 0
	for _, c := range games {
		if c.IGDBID == 0 || c.Name == "" {
			continue
		}
		_, err := stmt.ExecContext(ctx,
			c.IGDBID, c.Name, game.NormalizeName(c.Name), c.Summary, c.Description, int(c.Category),
			formatNullableTime(c.ReleaseDate), c.Rating, c.RatingCount, c.Follows, c.Hypes,
			marshalStrings(c.Genres), marshalPlatforms(c.Platforms),
			now, now, now,
		)
		if err != nil {
			return written, fmt.Errorf("upserting game %d: %w", c.IGDBID, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return written, fmt.Errorf("committing upsert: %w", err)
	}
	return written, nil
}

// StaleIDs returns IGDB IDs of games never synced or last synced before the
// cutoff, oldest first.
func (s *Store) StaleIDs(ctx context.Context, olderThan time.Time, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 250
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT igdb_id FROM games
		WHERE igdb_id IS NOT NULL
		  AND (last_synced_at IS NULL OR last_synced_at < ?)
		ORDER BY last_synced_at IS NOT NULL, last_synced_at
		LIMIT ?
	`, olderThan.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, fmt.Errorf("listing stale games: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning stale id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stale ids: %w", err)
	}
	return ids, nil
}

// Count returns the total number of cataloged games.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM games`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting games: %w", err)
	}
	return n, nil
}

// SetFlags updates the local curation flags for a game.
func (s *Store) SetFlags(ctx context.Context, id int64, greenlight, redlight bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE games SET greenlight = ?, redlight = ?, updated_at = ? WHERE id = ?
	`, boolToInt(greenlight), boolToInt(redlight), time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("updating game flags: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking flag update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("game not found: %d", id)
	}
	return nil
}

func scanGame(row interface{ Scan(...any) error }) (*game.Candidate, error) {
	var c game.Candidate
	var igdbID sql.NullInt64
	var releaseDate sql.NullString
	var category int
	var genres, platforms string
	var greenlight, redlight int

	err := row.Scan(
		&c.LocalID, &igdbID, &c.Name, &c.Summary, &c.Description, &category,
		&releaseDate, &c.Rating, &c.RatingCount, &c.Follows, &c.Hypes,
		&genres, &platforms, &greenlight, &redlight,
	)
	if err != nil {
		return nil, err
	}

	if igdbID.Valid {
		c.IGDBID = igdbID.Int64
	}
	if releaseDate.Valid {
		c.ReleaseDate = parseTime(releaseDate.String)
	}
	c.Category = game.Category(category)
	c.Genres = unmarshalStrings(genres)
	c.Platforms = unmarshalPlatforms(platforms)
	c.Greenlight = greenlight != 0
	c.Redlight = redlight != 0
	c.Source = game.SourceCatalog
	return &c, nil
}

// escapeLike neutralizes LIKE pattern characters in user input.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

func marshalStrings(s []string) string {
	if s == nil {
		return "[]"
	}
	data, _ := json.Marshal(s)
	return string(data)
}

func unmarshalStrings(data string) []string {
	if data == "" || data == "[]" {
		return nil
	}
	var result []string
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil
	}
	return result
}

func marshalPlatforms(p []game.Platform) string {
	if p == nil {
		return "[]"
	}
	data, _ := json.Marshal(p)
	return string(data)
}

func unmarshalPlatforms(data string) []game.Platform {
	if data == "" || data == "[]" {
		return nil
	}
	var result []game.Platform
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil
	}
	return result
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// parseTime handles both RFC3339 and SQLite datetime formats.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
