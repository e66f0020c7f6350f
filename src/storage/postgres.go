package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"market-gateway/src/logger"
	"market-gateway/src/models"
)

// -----------------------------------------------------------------------------

type PostgresCatalog struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresCatalog(cfg *models.MConfig, log *logger.Logger) (*PostgresCatalog, error) {
	return &PostgresCatalog{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresCatalog) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		return err
	}
	d.DB = db

	query := `
		CREATE TABLE IF NOT EXISTS instruments (
			exchange TEXT,
			symbol TEXT,
			updated_at BIGINT,
			PRIMARY KEY (exchange, symbol)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create instruments table: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresCatalog) SaveInstruments(source string, symbols []string) error {
	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM instruments WHERE exchange = $1", source); err != nil {
		return fmt.Errorf("failed to clear instruments for %s: %w", source, err)
	}

	stmt, err := tx.Prepare("INSERT INTO instruments (exchange, symbol, updated_at) VALUES ($1, $2, $3)")
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

func (d *PostgresCatalog) LoadInstruments(source string) ([]string, error) {
	rows, err := d.DB.Query("SELECT symbol FROM instruments WHERE exchange = $1 ORDER BY symbol", source)
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

func (d *PostgresCatalog) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}
