package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/seinetours/booking-backend/internal/middleware"
	"github.com/seinetours/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

const maxPatchBytes = 1 << 20

// CatalogAPI is the catalog behaviour the handler needs
type CatalogAPI interface {
	ListPackages(ctx context.Context, filter models.PackageFilter) ([]*models.Package, error)
	GetPackage(ctx context.Context, id string) (*models.Package, error)
	CreatePackage(ctx context.Context, pkg *models.Package) (*models.Package, error)
	UpdatePackage(ctx context.Context, id string, patch []byte) (*models.Package, error)
	DeletePackage(ctx context.Context, id string) error
	Seed(ctx context.Context) ([]*models.Package, error)
}

// CatalogHandler serves /api/tickets and /api/seed
type CatalogHandler struct {
	catalog CatalogAPI
	logger  *logrus.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalog CatalogAPI, logger *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// ListTickets handles GET /api/tickets?location=&limit=&featured=
func (h *CatalogHandler) ListTickets(c *gin.Context) {
	filter := models.PackageFilter{Location: c.Query("location")}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			RespondError(c, h.logger, models.NewValidationError("limit", "must be an integer"))
			return
		}
		filter.Limit = limit
	}
	if raw := c.Query("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			RespondError(c, h.logger, models.NewValidationError("featured", "must be true or false"))
			return
		}
		filter.Featured = featured
	}

	pkgs, err := h.catalog.ListPackages(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": pkgs})
}

// GetTicket handles GET /api/tickets/:id
func (h *CatalogHandler) GetTicket(c *gin.Context) {
	pkg, err := h.catalog.GetPackage(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": pkg})
}

// CreateTicket handles POST /api/tickets
func (h *CatalogHandler) CreateTicket(c *gin.Context) {
	var pkg models.Package
	if err := c.ShouldBindJSON(&pkg); err != nil {
		respondBindError(c, err)
		return
	}

	created, err := h.catalog.CreatePackage(c.Request.Context(), &pkg)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ticket": created})
}

// UpdateTicket handles PUT /api/tickets/:id. The body is a partial document;
// keys it carries replace the stored values.
func (h *CatalogHandler) UpdateTicket(c *gin.Context) {
	patch, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPatchBytes))
	if err != nil {
		respondBindError(c, err)
		return
	}

	updated, err := h.catalog.UpdatePackage(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": updated})
}

// DeleteTicket handles DELETE /api/tickets/:id
func (h *CatalogHandler) DeleteTicket(c *gin.Context) {
	if err := h.catalog.DeletePackage(c.Request.Context(), c.Param("id")); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Ticket deleted"})
}

// Seed handles POST /api/seed
func (h *CatalogHandler) Seed(c *gin.Context) {
	pkgs, err := h.catalog.Seed(c.Request.Context())
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	fields := logrus.Fields{"packages": len(pkgs)}
	if admin, ok := middleware.GetAdminContext(c); ok {
		fields["admin_id"] = admin.AdminID
	}
	h.logger.WithFields(fields).Warn("Catalog reseeded")

	c.JSON(http.StatusOK, gin.H{
		"message": "Catalog reseeded",
		"tickets": pkgs,
	})
}
