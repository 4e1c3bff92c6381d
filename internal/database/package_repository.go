package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/seinetours/booking-backend/internal/models"
)

const packageColumns = `id, title, subtitle, description, location, price, child_price, full_price,
	rating, review_count, image_url, gallery, available_slots, itinerary, included, variations,
	is_featured, created_at, updated_at`

// PackageRepository handles package (catalog) database operations
type PackageRepository struct {
	db *sqlx.DB
}

// NewPackageRepository creates a new PackageRepository
func NewPackageRepository(db *sqlx.DB) *PackageRepository {
	return &PackageRepository{db: db}
}

// List returns packages matching the filter, newest first
func (r *PackageRepository) List(ctx context.Context, filter models.PackageFilter) ([]*models.Package, error) {
	var (
		conditions []string
		args       []interface{}
	)

	if loc := strings.TrimSpace(filter.Location); loc != "" {
		args = append(args, "%"+escapeLike(loc)+"%")
		conditions = append(conditions, fmt.Sprintf("location ILIKE $%d", len(args)))
	}
	if filter.Featured {
		conditions = append(conditions, "is_featured = TRUE")
	}

	query := `SELECT ` + packageColumns + ` FROM packages`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	packages := []*models.Package{}
	if err := r.db.SelectContext(ctx, &packages, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	return packages, nil
}

// GetByID retrieves one package
func (r *PackageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Package, error) {
	var pkg models.Package
	err := r.db.GetContext(ctx, &pkg, `SELECT `+packageColumns+` FROM packages WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrPackageNotFound
		}
		return nil, fmt.Errorf("failed to get package: %w", err)
	}
	return &pkg, nil
}

// getPackagesByIDs loads several packages keyed by id; unknown ids are absent from the map
func getPackagesByIDs(ctx context.Context, db *sqlx.DB, ids []uuid.UUID) (map[uuid.UUID]*models.Package, error) {
	result := make(map[uuid.UUID]*models.Package, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT `+packageColumns+` FROM packages WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build package query: %w", err)
	}

	var packages []*models.Package
	if err := db.SelectContext(ctx, &packages, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get packages: %w", err)
	}
	for _, p := range packages {
		result[p.ID] = p
	}
	return result, nil
}

// Create inserts a package
func (r *PackageRepository) Create(ctx context.Context, pkg *models.Package) error {
	return insertPackage(ctx, r.db, pkg)
}

func insertPackage(ctx context.Context, ext sqlx.ExtContext, pkg *models.Package) error {
	if pkg.ID == uuid.Nil {
		pkg.ID = uuid.New()
	}
	if pkg.CreatedAt.IsZero() {
		pkg.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO packages (
			id, title, subtitle, description, location, price, child_price, full_price,
			rating, review_count, image_url, gallery, available_slots, itinerary, included,
			variations, is_featured, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $18
		)
		RETURNING created_at, updated_at`

	row := ext.QueryRowxContext(ctx, query,
		pkg.ID, pkg.Title, pkg.Subtitle, pkg.Description, pkg.Location, pkg.Price, pkg.ChildPrice,
		pkg.FullPrice, pkg.Rating, pkg.ReviewCount, pkg.ImageURL, pkg.Gallery, pkg.AvailableSlots,
		pkg.Itinerary, pkg.Included, pkg.Variations, pkg.IsFeatured, pkg.CreatedAt,
	)
	if err := row.Scan(&pkg.CreatedAt, &pkg.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create package: %w", err)
	}
	return nil
}

// Update writes the editable fields of a package. Available slots are only
// overwritten when setSlots is true so an edit does not clobber concurrent holds.
func (r *PackageRepository) Update(ctx context.Context, pkg *models.Package, setSlots bool) error {
	query := `
		UPDATE packages
		SET title = $2, subtitle = $3, description = $4, location = $5, price = $6,
		    child_price = $7, full_price = $8, rating = $9, review_count = $10,
		    image_url = $11, gallery = $12, itinerary = $13, included = $14,
		    variations = $15, is_featured = $16,
		    available_slots = CASE WHEN $17 THEN $18::int ELSE available_slots END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING available_slots, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		pkg.ID, pkg.Title, pkg.Subtitle, pkg.Description, pkg.Location, pkg.Price,
		pkg.ChildPrice, pkg.FullPrice, pkg.Rating, pkg.ReviewCount,
		pkg.ImageURL, pkg.Gallery, pkg.Itinerary, pkg.Included,
		pkg.Variations, pkg.IsFeatured, setSlots, pkg.AvailableSlots,
	).Scan(&pkg.AvailableSlots, &pkg.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrPackageNotFound
		}
		return fmt.Errorf("failed to update package: %w", err)
	}
	return nil
}

// Delete removes a package; bookings keep their rows with package_id cleared
func (r *PackageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM packages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete package: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrPackageNotFound
	}
	return nil
}

// ReplaceAll wipes the catalog and inserts packages in a single transaction
func (r *PackageRepository) ReplaceAll(ctx context.Context, packages []*models.Package) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM packages`); err != nil {
		return fmt.Errorf("failed to clear packages: %w", err)
	}

	now := time.Now()
	for i, pkg := range packages {
		// Keep fixture order stable under ORDER BY created_at DESC
		pkg.CreatedAt = now.Add(-time.Duration(i) * time.Second)
		if err := insertPackage(ctx, tx, pkg); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog reset: %w", err)
	}
	return nil
}

// escapeLike escapes LIKE wildcards in user input
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
