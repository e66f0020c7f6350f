package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"market-gateway/src/logger"
	"market-gateway/src/models"
)

// -----------------------------------------------------------------------------

// SQLiteCatalog persists the last-known instrument list per source, so
// /markets can warm-start after a restart even while the upstream is down.
type SQLiteCatalog struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteCatalog(cfg *models.MConfig, log *logger.Logger) (*SQLiteCatalog, error) {
	return &SQLiteCatalog{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteCatalog) Initialize() error {
	dsn := d.Config.Storage.DBPath

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		return err
	}
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	query := `
		CREATE TABLE IF NOT EXISTS instruments (
			exchange TEXT,
			symbol TEXT,
			updated_at INTEGER,
			PRIMARY KEY (exchange, symbol)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create instruments table: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteCatalog) SaveInstruments(source string, symbols []string) error {
	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM instruments WHERE exchange = ?", source); err != nil {
		return fmt.Errorf("failed to clear instruments for %s: %w", source, err)
	}

	stmt, err := tx.Prepare("INSERT INTO instruments (exchange, symbol, updated_at) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, symbol := range symbols {
		if _, err := stmt.Exec(source, symbol, now); err != nil {
			return fmt.Errorf("failed to insert instrument %s: %w", symbol, err)
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *SQLiteCatalog) LoadInstruments(source string) ([]string, error) {
	rows, err := d.DB.Query("SELECT symbol FROM instruments WHERE exchange = ? ORDER BY symbol", source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, err
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *SQLiteCatalog) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}
