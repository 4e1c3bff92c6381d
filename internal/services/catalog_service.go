package services

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/seinetours/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

const maxListLimit = 100

// Keys a partial update may not overwrite
var immutablePackageKeys = []string{"id", "createdAt", "updatedAt"}

// CatalogService manages the sellable packages
type CatalogService struct {
	packages  PackageStore
	cache     *CatalogCache
	allowSeed bool
	logger    *logrus.Logger
}

// NewCatalogService creates a new CatalogService. allowSeed gates the
// destructive fixture reload.
func NewCatalogService(packages PackageStore, cache *CatalogCache, allowSeed bool, logger *logrus.Logger) *CatalogService {
	return &CatalogService{
		packages:  packages,
		cache:     cache,
		allowSeed: allowSeed,
		logger:    logger,
	}
}

// ParseID parses a path identifier, returning ErrInvalidID when malformed
func ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, models.ErrInvalidID
	}
	return id, nil
}

// ListPackages returns packages matching filter, newest first
func (s *CatalogService) ListPackages(ctx context.Context, filter models.PackageFilter) ([]*models.Package, error) {
	filter.Location = strings.TrimSpace(filter.Location)
	if filter.Limit < 0 {
		return nil, models.NewValidationError("limit", "must not be negative")
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	if pkgs, ok := s.cache.GetList(ctx, filter); ok {
		return pkgs, nil
	}

	pkgs, err := s.packages.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.cache.SetList(ctx, filter, pkgs)
	return pkgs, nil
}

// GetPackage returns one package
func (s *CatalogService) GetPackage(ctx context.Context, rawID string) (*models.Package, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}

	if pkg, ok := s.cache.GetPackage(ctx, id); ok {
		return pkg, nil
	}

	pkg, err := s.packages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetPackage(ctx, pkg)
	return pkg, nil
}

// CreatePackage validates and stores a new package
func (s *CatalogService) CreatePackage(ctx context.Context, pkg *models.Package) (*models.Package, error) {
	pkg.ID = uuid.Nil
	if err := pkg.Validate(); err != nil {
		return nil, err
	}

	if err := s.packages.Create(ctx, pkg); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)

	s.logger.WithFields(logrus.Fields{
		"package_id": pkg.ID,
		"location":   pkg.Location,
	}).Info("Package created")
	return pkg, nil
}

// UpdatePackage merges a partial JSON document onto the stored package.
// Top-level keys in patch replace the stored values.
func (s *CatalogService) UpdatePackage(ctx context.Context, rawID string, patch []byte) (*models.Package, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}

	var changes map[string]json.RawMessage
	if err := json.Unmarshal(patch, &changes); err != nil || changes == nil {
		return nil, models.NewValidationError("body", "must be a JSON object")
	}
	for _, key := range immutablePackageKeys {
		delete(changes, key)
	}

	current, err := s.packages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := mergePackage(current, changes)
	if err != nil {
		return nil, err
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	_, setSlots := changes["availableSlots"]
	if err := s.packages.Update(ctx, updated, setSlots); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)

	s.logger.WithFields(logrus.Fields{
		"package_id": id,
		"fields":     len(changes),
	}).Info("Package updated")
	return updated, nil
}

func mergePackage(current *models.Package, changes map[string]json.RawMessage) (*models.Package, error) {
	base, err := json.Marshal(current)
	if err != nil {
		return nil, err
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(base, &doc); err != nil {
		return nil, err
	}
	for k, v := range changes {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	var out models.Package
	dec := json.NewDecoder(bytes.NewReader(merged))
	if err := dec.Decode(&out); err != nil {
		return nil, models.NewValidationError("body", "invalid field value: %v", err)
	}
	out.ID = current.ID
	out.CreatedAt = current.CreatedAt
	return &out, nil
}

// DeletePackage removes a package; its bookings are kept
func (s *CatalogService) DeletePackage(ctx context.Context, rawID string) error {
	id, err := ParseID(rawID)
	if err != nil {
		return err
	}
	if err := s.packages.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx)

	s.logger.WithField("package_id", id).Info("Package deleted")
	return nil
}

// Seed wipes the catalog and reloads the Paris fixtures
func (s *CatalogService) Seed(ctx context.Context) ([]*models.Package, error) {
	if !s.allowSeed {
		return nil, models.ErrSeedDisabled
	}

	pkgs := ParisPackages()
	if err := s.packages.ReplaceAll(ctx, pkgs); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)

	s.logger.WithField("count", len(pkgs)).Warn("Catalog reset to fixtures")
	return pkgs, nil
}
