package weather

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"

	_ "modernc.org/sqlite"
)

const sqliteEntryName = "weather"

// SQLiteStore stores the forecast as a JSON body with expiry and start_of_day kept
// as separate metadata columns.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		log.Println("warning: could not set WAL mode:", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS weather_cache (
        name TEXT PRIMARY KEY,
        body TEXT NOT NULL,
        expiry INTEGER NOT NULL,
        start_of_day INTEGER NOT NULL
    );`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*CachedForecast, error) {
	var (
		body  string
		entry CachedForecast
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT body, expiry, start_of_day FROM weather_cache WHERE name = ?`, sqliteEntryName)
	if err := row.Scan(&body, &entry.Expiry, &entry.StartOfDay); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(body), &entry.Weather); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *SQLiteStore) Save(ctx context.Context, entry CachedForecast) error {
	body, err := json.Marshal(entry.Weather)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO weather_cache(name, body, expiry, start_of_day) VALUES(?,?,?,?)
        ON CONFLICT(name) DO UPDATE SET body = excluded.body, expiry = excluded.expiry, start_of_day = excluded.start_of_day`,
		sqliteEntryName, string(body), entry.Expiry, entry.StartOfDay)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
