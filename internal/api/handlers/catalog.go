package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sebastianpd1/next-ecommerce-backend/internal/domain"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/repository"
	"github.com/sebastianpd1/next-ecommerce-backend/pkg/errors"
)

// PrinterInput is a printer upsert payload, keyed by the upstream id
type PrinterInput struct {
	ID        string  `json:"id"`
	Brand     string  `json:"brand"`
	Model     string  `json:"model"`
	Type      string  `json:"type"`
	Condition string  `json:"condition"`
	Duplex    bool    `json:"duplex"`
	Network   bool    `json:"network"`
	Price     float64 `json:"price"`
	Voltage   string  `json:"voltage"`
	Scanner   bool    `json:"scanner"`
	Speed     string  `json:"speed"`
	Toner     string  `json:"toner"`
	Drum      string  `json:"drum"`
	Yield     string  `json:"yield"`
	Warranty  string  `json:"warranty"`
	Stock     int     `json:"stock"`
	Photo     string  `json:"photo"`
}

func (in *PrinterInput) toDomain() (*domain.Printer, error) {
	if strings.TrimSpace(in.ID) == "" || strings.TrimSpace(in.Brand) == "" || strings.TrimSpace(in.Model) == "" {
		return nil, &errors.ErrValidation{Message: "id, brand y model son requeridos"}
	}
	return &domain.Printer{
		ExternalID: strings.TrimSpace(in.ID),
		Brand:      strings.TrimSpace(in.Brand),
		Model:      strings.TrimSpace(in.Model),
		Type:       in.Type,
		Condition:  in.Condition,
		Duplex:     in.Duplex,
		Network:    in.Network,
		Price:      in.Price,
		Voltage:    in.Voltage,
		Scanner:    in.Scanner,
		Speed:      in.Speed,
		Toner:      in.Toner,
		Drum:       in.Drum,
		Yield:      in.Yield,
		Warranty:   in.Warranty,
		Stock:      in.Stock,
		Photo:      in.Photo,
	}, nil
}

// HandleUpsertPrinters handles POST /api/printers (admin)
func HandleUpsertPrinters(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		upsertPayload(c, logger, "impresoras",
			func(in PrinterInput) (*domain.Printer, error) { return in.toDomain() },
			repos.Printer.Upsert,
			repos.Printer.UpsertBatch,
		)
	}
}

// HandleListPrinters handles GET /api/printers (public)
func HandleListPrinters(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		printers, err := repos.Printer.List(c.Request.Context())
		if err != nil {
			logger.Error("Failed to list printers", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error al obtener impresoras"})
			return
		}

		out := make([]gin.H, 0, len(printers))
		for _, p := range printers {
			out = append(out, gin.H{
				"id":        p.ExternalID,
				"brand":     p.Brand,
				"model":     p.Model,
				"type":      p.Type,
				"condition": p.Condition,
				"duplex":    p.Duplex,
				"network":   p.Network,
				"price":     p.Price,
				"voltage":   p.Voltage,
				"scanner":   p.Scanner,
				"speed":     p.Speed,
				"toner":     p.Toner,
				"drum":      p.Drum,
				"yield":     p.Yield,
				"warranty":  p.Warranty,
				"stock":     p.Stock,
				"photo":     p.Photo,
			})
		}
		c.JSON(http.StatusOK, out)
	}
}

// HandleDeletePrinter handles DELETE /api/printers?id=... (admin)
func HandleDeletePrinter(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return deleteByQueryID(logger, "impresora", func(c *gin.Context, id string) error {
		return repos.Printer.DeleteByExternalID(c.Request.Context(), id)
	})
}

// SliderInput is a slider image upsert payload
type SliderInput struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl"`
	Title    string `json:"title"`
	Caption  string `json:"caption"`
	LinkURL  string `json:"linkUrl"`
	Position int    `json:"order"`
	IsActive *bool  `json:"isActive"`
}

func (in *SliderInput) toDomain() (*domain.SliderImage, error) {
	if strings.TrimSpace(in.ID) == "" || strings.TrimSpace(in.ImageURL) == "" {
		return nil, &errors.ErrValidation{Message: "id e imageUrl son requeridos"}
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return &domain.SliderImage{
		ExternalID: strings.TrimSpace(in.ID),
		ImageURL:   strings.TrimSpace(in.ImageURL),
		Title:      in.Title,
		Caption:    in.Caption,
		LinkURL:    in.LinkURL,
		Position:   in.Position,
		IsActive:   active,
	}, nil
}

// HandleUpsertSliders handles POST /api/slider (admin)
func HandleUpsertSliders(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		upsertPayload(c, logger, "imágenes",
			func(in SliderInput) (*domain.SliderImage, error) { return in.toDomain() },
			repos.Slider.Upsert,
			repos.Slider.UpsertBatch,
		)
	}
}

// HandleListSliders handles GET /api/slider (public, active only)
func HandleListSliders(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		images, err := repos.Slider.ListActive(c.Request.Context())
		if err != nil {
			logger.Error("Failed to list slider images", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error al obtener slider"})
			return
		}

		out := make([]gin.H, 0, len(images))
		for _, s := range images {
			out = append(out, gin.H{
				"id":       s.ExternalID,
				"imageUrl": s.ImageURL,
				"title":    s.Title,
				"caption":  s.Caption,
				"linkUrl":  s.LinkURL,
				"order":    s.Position,
			})
		}
		c.JSON(http.StatusOK, out)
	}
}

// HandleDeleteSlider handles DELETE /api/slider?id=... (admin)
func HandleDeleteSlider(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return deleteByQueryID(logger, "imagen de slider", func(c *gin.Context, id string) error {
		return repos.Slider.DeleteByExternalID(c.Request.Context(), id)
	})
}

// AnnouncementInput is an announcement upsert payload
type AnnouncementInput struct {
	ID       string     `json:"id"`
	Text     string     `json:"text"`
	StartsAt *time.Time `json:"startsAt"`
	EndsAt   *time.Time `json:"endsAt"`
	IsActive *bool      `json:"isActive"`
	Priority int        `json:"priority"`
}

func (in *AnnouncementInput) toDomain() (*domain.Announcement, error) {
	if strings.TrimSpace(in.ID) == "" || strings.TrimSpace(in.Text) == "" {
		return nil, &errors.ErrValidation{Message: "id y text son requeridos"}
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return &domain.Announcement{
		ExternalID: strings.TrimSpace(in.ID),
		Text:       in.Text,
		StartsAt:   in.StartsAt,
		EndsAt:     in.EndsAt,
		IsActive:   active,
		Priority:   in.Priority,
	}, nil
}

// HandleUpsertAnnouncements handles POST /api/announcements (admin)
func HandleUpsertAnnouncements(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		upsertPayload(c, logger, "anuncios",
			func(in AnnouncementInput) (*domain.Announcement, error) { return in.toDomain() },
			repos.Announcement.Upsert,
			repos.Announcement.UpsertBatch,
		)
	}
}

// HandleListAnnouncements handles GET /api/announcements (public, active within window)
func HandleListAnnouncements(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		announcements, err := repos.Announcement.ListActive(c.Request.Context())
		if err != nil {
			logger.Error("Failed to list announcements", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error al obtener anuncios"})
			return
		}

		out := make([]gin.H, 0, len(announcements))
		for _, a := range announcements {
			out = append(out, gin.H{
				"id":       a.ExternalID,
				"text":     a.Text,
				"startsAt": a.StartsAt,
				"endsAt":   a.EndsAt,
				"priority": a.Priority,
			})
		}
		c.JSON(http.StatusOK, out)
	}
}

// HandleDeleteAnnouncement handles DELETE /api/announcements?id=... (admin)
func HandleDeleteAnnouncement(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return deleteByQueryID(logger, "anuncio", func(c *gin.Context, id string) error {
		return repos.Announcement.DeleteByExternalID(c.Request.Context(), id)
	})
}

// upsertPayload accepts either a single object or an array of them,
// mirroring the batch sync contract of the upstream catalog.
func upsertPayload[I any, D any](
	c *gin.Context,
	logger *zap.Logger,
	plural string,
	convert func(I) (D, error),
	upsert func(ctx context.Context, d D) (bool, error),
	upsertBatch func(ctx context.Context, ds []D) (int, int, error),
) {
	var raw json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload inválido"})
		return
	}

	if isJSONArray(raw) {
		var inputs []I
		if err := json.Unmarshal(raw, &inputs); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payload inválido"})
			return
		}

		ds := make([]D, 0, len(inputs))
		for _, in := range inputs {
			d, err := convert(in)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ds = append(ds, d)
		}

		created, updated, err := upsertBatch(c.Request.Context(), ds)
		if err != nil {
			logger.Error("Failed to upsert "+plural, zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error en el servidor"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Procesados", "created": created, "updated": updated})
		return
	}

	var input I
	if err := json.Unmarshal(raw, &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload inválido"})
		return
	}
	d, err := convert(input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := upsert(c.Request.Context(), d)
	if err != nil {
		logger.Error("Failed to upsert "+plural, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error en el servidor"})
		return
	}

	message := "Actualizado"
	if created {
		message = "Creado"
	}
	c.JSON(http.StatusCreated, gin.H{"message": message})
}

func deleteByQueryID(logger *zap.Logger, resource string, del func(c *gin.Context, id string) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Query("id")
		if id == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "falta id"})
			return
		}
		if err := del(c, id); err != nil {
			if _, ok := err.(*errors.ErrNotFound); ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "no encontrado"})
				return
			}
			logger.Error("Failed to delete "+resource, zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error en el servidor"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Borrado"})
	}
}
