package postgres

import (
	"context"
	"database/sql"

	"club-recruitment-service/internal/repository"
)

type clubRepository struct {
	db *sql.DB
}

func NewClubRepository(db *sql.DB) repository.ClubRepository {
	return &clubRepository{db: db}
}

func (r *clubRepository) Exists(ctx context.Context, clubID string) (bool, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clubs WHERE id = $1`, clubID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
