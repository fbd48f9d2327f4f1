package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sebastianpd1/next-ecommerce-backend/internal/domain"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/repository"
	"github.com/sebastianpd1/next-ecommerce-backend/pkg/errors"
)

// VariantInput is a product variant in upsert payloads
type VariantInput struct {
	SKU   string `json:"sku"`
	Color string `json:"color"`
	Stock int    `json:"stock"`
}

// CompatibleInput is a printer-compatibility entry in upsert payloads
type CompatibleInput struct {
	SKU      string `json:"sku"`
	Brand    string `json:"brand"`
	Printer  string `json:"printer"`
	Category string `json:"category"`
}

// ProductInput is a catalog upsert payload, keyed by the upstream id
type ProductInput struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Model       string            `json:"model"`
	PartNumber  string            `json:"partNumber"`
	Brand       string            `json:"brand"`
	Price       float64           `json:"price"`
	SKU         string            `json:"sku"`
	Stock       int               `json:"stock"`
	Description string            `json:"description"`
	Variants    []VariantInput    `json:"variants"`
	Compatibles []CompatibleInput `json:"compatibles"`
	Photos      []string          `json:"photos"`
}

func (in *ProductInput) toDomain() (*domain.Product, error) {
	externalID := strings.TrimSpace(in.ID)
	title := strings.TrimSpace(in.Title)
	if externalID == "" || title == "" {
		return nil, &errors.ErrValidation{Message: "id y title son requeridos"}
	}

	p := &domain.Product{
		ExternalID:  externalID,
		Title:       title,
		Model:       strings.TrimSpace(in.Model),
		PartNumber:  strings.TrimSpace(in.PartNumber),
		Brand:       strings.TrimSpace(in.Brand),
		Price:       in.Price,
		SKU:         strings.TrimSpace(in.SKU),
		Stock:       in.Stock,
		Description: in.Description,
		Photos:      in.Photos,
	}
	if p.Stock < 0 {
		p.Stock = 0
	}

	for _, v := range in.Variants {
		sku := strings.TrimSpace(v.SKU)
		if sku == "" {
			continue
		}
		stock := v.Stock
		if stock < 0 {
			stock = 0
		}
		p.Variants = append(p.Variants, domain.Variant{SKU: sku, Color: v.Color, Stock: stock})
	}

	// Canonical sku defaults to the first variant's
	if p.SKU == "" && len(p.Variants) > 0 {
		p.SKU = p.Variants[0].SKU
	}
	if p.SKU == "" {
		return nil, &errors.ErrValidation{Message: "sku requerido para " + title}
	}

	for _, c := range in.Compatibles {
		p.Compatibles = append(p.Compatibles, domain.Compatible{
			SKU:      c.SKU,
			Brand:    c.Brand,
			Printer:  c.Printer,
			Category: c.Category,
		})
	}

	return p, nil
}

// HandleUpsertProducts handles POST /api/products (admin).
// Accepts a single product or an array for batch sync.
func HandleUpsertProducts(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var raw json.RawMessage
		if err := c.ShouldBindJSON(&raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payload inválido"})
			return
		}

		if isJSONArray(raw) {
			var inputs []ProductInput
			if err := json.Unmarshal(raw, &inputs); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "payload inválido"})
				return
			}

			products := make([]*domain.Product, 0, len(inputs))
			for i := range inputs {
				p, err := inputs[i].toDomain()
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				products = append(products, p)
			}

			created, updated, err := repos.Product.UpsertBatch(c.Request.Context(), products)
			if err != nil {
				logger.Error("Failed to upsert products", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "error en el servidor"})
				return
			}

			c.JSON(http.StatusCreated, gin.H{
				"message": "Productos procesados",
				"created": created,
				"updated": updated,
			})
			return
		}

		var input ProductInput
		if err := json.Unmarshal(raw, &input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payload inválido"})
			return
		}
		p, err := input.toDomain()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		created, err := repos.Product.Upsert(c.Request.Context(), p)
		if err != nil {
			logger.Error("Failed to upsert product", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error en el servidor"})
			return
		}

		message := "Producto actualizado"
		if created {
			message = "Producto creado"
		}
		c.JSON(http.StatusCreated, gin.H{"message": message})
	}
}

// HandleListProducts handles GET /api/products (public).
// By default only in-stock products are returned.
func HandleListProducts(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))

		filter := repository.ProductFilter{
			SKU:               c.Query("sku"),
			PartNumber:        c.Query("partNumber"),
			PrinterExternalID: c.Query("printerId"),
			IncludeOutOfStock: c.Query("include_out_of_stock") != "",
			Limit:             limit,
		}

		products, err := repos.Product.List(c.Request.Context(), filter)
		if err != nil {
			logger.Error("Failed to list products", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error al obtener productos"})
			return
		}
		c.JSON(http.StatusOK, productResponses(products))
	}
}

// HandleGetProduct handles GET /api/products/:id (public, by external id)
func HandleGetProduct(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		includeOOS := c.Query("include_out_of_stock") != ""

		p, err := repos.Product.GetByExternalID(c.Request.Context(), c.Param("id"), includeOOS)
		if err != nil {
			if _, ok := err.(*errors.ErrNotFound); ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "no encontrado"})
				return
			}
			logger.Error("Failed to get product", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error al obtener producto"})
			return
		}
		c.JSON(http.StatusOK, productResponse(p))
	}
}

// HandleDeleteProduct handles DELETE /api/products?id=... (admin)
func HandleDeleteProduct(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		externalID := c.Query("id")
		if externalID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "falta id"})
			return
		}

		if err := repos.Product.DeleteByExternalID(c.Request.Context(), externalID); err != nil {
			if _, ok := err.(*errors.ErrNotFound); ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "no encontrado"})
				return
			}
			logger.Error("Failed to delete product", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error al borrar producto"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Producto borrado"})
	}
}

func productResponses(products []*domain.Product) []gin.H {
	out := make([]gin.H, 0, len(products))
	for _, p := range products {
		out = append(out, productResponse(p))
	}
	return out
}

func productResponse(p *domain.Product) gin.H {
	variants := make([]gin.H, 0, len(p.Variants))
	for _, v := range p.Variants {
		variants = append(variants, gin.H{"sku": v.SKU, "color": v.Color, "stock": v.Stock})
	}
	compatibles := make([]gin.H, 0, len(p.Compatibles))
	for _, cm := range p.Compatibles {
		compatibles = append(compatibles, gin.H{
			"sku": cm.SKU, "brand": cm.Brand, "printer": cm.Printer, "category": cm.Category,
		})
	}

	return gin.H{
		"id":          p.ExternalID,
		"title":       p.Title,
		"model":       p.Model,
		"partNumber":  p.PartNumber,
		"brand":       p.Brand,
		"price":       p.Price,
		"sku":         p.SKU,
		"stock":       p.Stock,
		"description": p.Description,
		"variants":    variants,
		"compatibles": compatibles,
		"photos":      p.Photos,
		"updatedAt":   p.UpdatedAt,
	}
}

func isJSONArray(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}
