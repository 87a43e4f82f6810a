package training

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/myrjola/coachreports/internal/sqlite"
)

// sqliteImageRepository implements imageRepository.
type sqliteImageRepository struct {
	db *sqlite.Database
}

func newSQLiteImageRepository(db *sqlite.Database) *sqliteImageRepository {
	return &sqliteImageRepository{db: db}
}

// Create stores an image under its id.
func (r *sqliteImageRepository) Create(ctx context.Context, img ChartImage) error {
	if _, err := r.db.ReadWrite.ExecContext(ctx,
		`INSERT INTO chart_images (id, content_type, data) VALUES (?, ?, ?)`,
		img.ID, img.ContentType, img.Data); err != nil {
		return fmt.Errorf("insert chart image: %w", err)
	}
	return nil
}

// Get retrieves an image by id.
func (r *sqliteImageRepository) Get(ctx context.Context, id string) (ChartImage, error) {
	img := ChartImage{ID: id}
	err := r.db.ReadOnly.QueryRowContext(ctx,
		`SELECT content_type, data FROM chart_images WHERE id = ?`, id).Scan(&img.ContentType, &img.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return ChartImage{}, ErrNotFound
	}
	if err != nil {
		return ChartImage{}, fmt.Errorf("query chart image: %w", err)
	}
	return img, nil
}
