package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Result is one finished game.
type Result struct {
	ID         int64     `json:"id"`
	GameID     string    `json:"gameId"`
	Game       string    `json:"game"`
	Seed       int64     `json:"seed"`
	Won        bool      `json:"won"`
	Plays      int       `json:"plays"`
	CardsLeft  int       `json:"cardsLeft"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Stats aggregates the results of one game.
type Stats struct {
	Game             string  `json:"game"`
	Played           int64   `json:"played"`
	Won              int64   `json:"won"`
	AveragePlays     float64 `json:"averagePlays"`
	AverageCardsLeft float64 `json:"averageCardsLeft"`
}

// WinRate returns the share of games won, 0 when nothing was played
func (s Stats) WinRate() float64 {
	if s.Played == 0 {
		return 0
	}
	return float64(s.Won) / float64(s.Played)
}

// Store keeps finished games in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies pending
// migrations. ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if looksLikeFilePath(path) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	if path == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordResult stores a finished game and returns it with its ID set.
func (s *Store) RecordResult(ctx context.Context, r Result) (Result, error) {
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO results(game_id, game, seed, won, plays, cards_left, finished_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.GameID, r.Game, r.Seed, r.Won, r.Plays, r.CardsLeft, r.FinishedAt,
	)
	if err != nil {
		return Result{}, fmt.Errorf("insert result: %w", err)
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return Result{}, fmt.Errorf("insert result: %w", err)
	}
	return r, nil
}

// Recent lists the latest results for game, newest first.
func (s *Store) Recent(ctx context.Context, game string, limit int) ([]Result, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, game_id, game, seed, won, plays, cards_left, finished_at FROM results WHERE game = ? ORDER BY finished_at DESC, id DESC LIMIT ?`,
		game, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.GameID, &r.Game, &r.Seed, &r.Won, &r.Plays, &r.CardsLeft, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats aggregates every stored result for game.
func (s *Store) Stats(ctx context.Context, game string) (Stats, error) {
	st := Stats{Game: game}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(won), 0), COALESCE(AVG(plays), 0), COALESCE(AVG(cards_left), 0) FROM results WHERE game = ?`,
		game,
	).Scan(&st.Played, &st.Won, &st.AveragePlays, &st.AverageCardsLeft)
	if err != nil {
		return Stats{}, fmt.Errorf("stats for %s: %w", game, err)
	}
	return st, nil
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") || path == ":memory:" {
		return path
	}
	return fmt.Sprintf("file:%s?_busy_timeout=5000", path)
}

func looksLikeFilePath(p string) bool {
	return p != ":memory:" && !strings.HasPrefix(p, "file:")
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := loadAppliedVersions(db)
	if err != nil {
		return err
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("readdir migrations: %w", err)
	}
	var migs []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			migs = append(migs, e.Name())
		}
	}
	sort.Strings(migs)

	for _, m := range migs {
		if applied[m] {
			continue
		}
		body, err := fs.ReadFile(migrationsFS, "migrations/"+m)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", m, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		if err := execSQLScript(tx, string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", m, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, m); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", m, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", m, err)
		}
	}
	return nil
}

func loadAppliedVersions(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		out[v] = true
	}
	return out, rows.Err()
}

// execSQLScript runs each statement of a migration. Migrations only use
// whole-line "--" comments and no semicolons inside literals.
func execSQLScript(tx *sql.Tx, script string) error {
	var kept []string
	for _, line := range strings.Split(script, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "--") {
			kept = append(kept, line)
		}
	}

	for _, stmt := range strings.Split(strings.Join(kept, "\n"), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
