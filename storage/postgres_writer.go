package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"attractions-scraper/models"
)

// PostgresWriter persists validated attractions to PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema
// migrations, and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS attractions (
			id         SERIAL PRIMARY KEY,
			name       TEXT        NOT NULL,
			type       VARCHAR(20) NOT NULL,
			city       TEXT        NOT NULL DEFAULT '',
			latitude   DOUBLE PRECISION,
			longitude  DOUBLE PRECISION,
			source_url TEXT        UNIQUE NOT NULL,
			payload    JSONB       NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_attractions_type ON attractions(type);
		CREATE INDEX IF NOT EXISTS idx_attractions_city ON attractions(city);
	`)
	return err
}

// Write batch-upserts attractions, keyed by source URL so a re-scrape
// of the same place replaces the stored record.
func (pw *PostgresWriter) Write(attractions []models.Attraction) error {
	if len(attractions) == 0 {
		return nil
	}

	const batchSize = 50
	for i := 0; i < len(attractions); i += batchSize {
		end := i + batchSize
		if end > len(attractions) {
			end = len(attractions)
		}
		if err := pw.insertBatch(attractions[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (pw *PostgresWriter) insertBatch(batch []models.Attraction) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*7)

	for idx, a := range batch {
		payload, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("postgres: marshal record: %w", err)
		}
		base := a.Base()
		n := idx * 7
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				n+1, n+2, n+3, n+4, n+5, n+6, n+7))
		valueArgs = append(valueArgs,
			base.Name, string(base.Type), base.City, base.Lat, base.Lng, base.SourceURL, payload)
	}

	query := fmt.Sprintf(`
		INSERT INTO attractions (name, type, city, latitude, longitude, source_url, payload)
		VALUES %s
		ON CONFLICT (source_url) DO UPDATE SET
			name       = EXCLUDED.name,
			type       = EXCLUDED.type,
			city       = EXCLUDED.city,
			latitude   = EXCLUDED.latitude,
			longitude  = EXCLUDED.longitude,
			payload    = EXCLUDED.payload,
			updated_at = NOW()
	`, strings.Join(valueStrings, ","))

	_, err := pw.db.Exec(query, valueArgs...)
	return err
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchAll retrieves every stored record, decoded back into its typed
// variant.
func (pw *PostgresWriter) FetchAll() ([]models.Attraction, error) {
	rows, err := pw.db.Query(`SELECT payload FROM attractions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var attractions []models.Attraction
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		a, err := models.UnmarshalAttraction(payload)
		if err != nil {
			return nil, fmt.Errorf("postgres: decode row: %w", err)
		}
		attractions = append(attractions, a)
	}
	return attractions, rows.Err()
}
