package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"club-recruitment-service/internal/repository"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Store struct {
	db *sql.DB
	repository.CampaignRepository
	repository.ApplicationRepository
	repository.ClubRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                    db,
		CampaignRepository:    NewCampaignRepository(db),
		ApplicationRepository: NewApplicationRepository(db),
		ClubRepository:        NewClubRepository(db),
	}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// Open connects to the database and verifies the connection. SQLite is
// limited to a single connection so writers serialize instead of failing
// with SQLITE_BUSY.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// placeholders returns "$start, $start+1, ..." for n arguments.
func placeholders(start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(parts, ", ")
}

// offset converts a normalized page into a row offset.
func offset(page, pageSize int32) int32 {
	return (page - 1) * pageSize
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
