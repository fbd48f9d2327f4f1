package postgres

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/sebastianpd1/next-ecommerce-backend/internal/domain"
	"github.com/sebastianpd1/next-ecommerce-backend/pkg/errors"
)

type printerRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPrinterRepository creates a new printer repository
func NewPrinterRepository(db *sql.DB, logger *zap.Logger) *printerRepository {
	return &printerRepository{db: db, logger: logger}
}

func (r *printerRepository) Upsert(ctx context.Context, p *domain.Printer) (bool, error) {
	var created bool
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO printers (
			external_id, brand, model, type, condition, duplex, network,
			price, voltage, scanner, speed, toner, drum, yield, warranty, stock, photo
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (external_id) DO UPDATE SET
			brand = EXCLUDED.brand,
			model = EXCLUDED.model,
			type = EXCLUDED.type,
			condition = EXCLUDED.condition,
			duplex = EXCLUDED.duplex,
			network = EXCLUDED.network,
			price = EXCLUDED.price,
			voltage = EXCLUDED.voltage,
			scanner = EXCLUDED.scanner,
			speed = EXCLUDED.speed,
			toner = EXCLUDED.toner,
			drum = EXCLUDED.drum,
			yield = EXCLUDED.yield,
			warranty = EXCLUDED.warranty,
			stock = EXCLUDED.stock,
			photo = EXCLUDED.photo,
			updated_at = now()
		RETURNING id, (xmax = 0)
	`,
		p.ExternalID, p.Brand, p.Model, p.Type, p.Condition, p.Duplex, p.Network,
		p.Price, p.Voltage, p.Scanner, p.Speed, p.Toner, p.Drum, p.Yield,
		p.Warranty, p.Stock, p.Photo,
	).Scan(&p.ID, &created)
	if err != nil {
		r.logger.Error("Failed to upsert printer", zap.String("external_id", p.ExternalID), zap.Error(err))
		return false, err
	}
	return created, nil
}

func (r *printerRepository) UpsertBatch(ctx context.Context, ps []*domain.Printer) (int, int, error) {
	var created, updated int
	for _, p := range ps {
		wasCreated, err := r.Upsert(ctx, p)
		if err != nil {
			return 0, 0, err
		}
		if wasCreated {
			created++
		} else {
			updated++
		}
	}
	return created, updated, nil
}

func (r *printerRepository) List(ctx context.Context) ([]*domain.Printer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, external_id, brand, model, type, condition, duplex, network,
		       price, voltage, scanner, speed, toner, drum, yield, warranty,
		       stock, photo, created_at, updated_at
		FROM printers
		ORDER BY brand, model
	`)
	if err != nil {
		r.logger.Error("Failed to query printers", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var printers []*domain.Printer
	for rows.Next() {
		var p domain.Printer
		if err := rows.Scan(
			&p.ID, &p.ExternalID, &p.Brand, &p.Model, &p.Type, &p.Condition,
			&p.Duplex, &p.Network, &p.Price, &p.Voltage, &p.Scanner, &p.Speed,
			&p.Toner, &p.Drum, &p.Yield, &p.Warranty, &p.Stock, &p.Photo,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		printers = append(printers, &p)
	}
	return printers, rows.Err()
}

func (r *printerRepository) DeleteByExternalID(ctx context.Context, externalID string) error {
	return deleteByExternalID(ctx, r.db, r.logger, "printers", "printer", externalID)
}

type sliderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSliderRepository creates a new slider image repository
func NewSliderRepository(db *sql.DB, logger *zap.Logger) *sliderRepository {
	return &sliderRepository{db: db, logger: logger}
}

func (r *sliderRepository) Upsert(ctx context.Context, s *domain.SliderImage) (bool, error) {
	var created bool
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO slider_images (external_id, image_url, title, caption, link_url, position, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (external_id) DO UPDATE SET
			image_url = EXCLUDED.image_url,
			title = EXCLUDED.title,
			caption = EXCLUDED.caption,
			link_url = EXCLUDED.link_url,
			position = EXCLUDED.position,
			is_active = EXCLUDED.is_active,
			updated_at = now()
		RETURNING id, (xmax = 0)
	`, s.ExternalID, s.ImageURL, s.Title, s.Caption, s.LinkURL, s.Position, s.IsActive).Scan(&s.ID, &created)
	if err != nil {
		r.logger.Error("Failed to upsert slider image", zap.String("external_id", s.ExternalID), zap.Error(err))
		return false, err
	}
	return created, nil
}

func (r *sliderRepository) UpsertBatch(ctx context.Context, ss []*domain.SliderImage) (int, int, error) {
	var created, updated int
	for _, s := range ss {
		wasCreated, err := r.Upsert(ctx, s)
		if err != nil {
			return 0, 0, err
		}
		if wasCreated {
			created++
		} else {
			updated++
		}
	}
	return created, updated, nil
}

func (r *sliderRepository) ListActive(ctx context.Context) ([]*domain.SliderImage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, external_id, image_url, title, caption, link_url, position, is_active, created_at, updated_at
		FROM slider_images
		WHERE is_active = true
		ORDER BY position
	`)
	if err != nil {
		r.logger.Error("Failed to query slider images", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var images []*domain.SliderImage
	for rows.Next() {
		var s domain.SliderImage
		if err := rows.Scan(
			&s.ID, &s.ExternalID, &s.ImageURL, &s.Title, &s.Caption,
			&s.LinkURL, &s.Position, &s.IsActive, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		images = append(images, &s)
	}
	return images, rows.Err()
}

func (r *sliderRepository) DeleteByExternalID(ctx context.Context, externalID string) error {
	return deleteByExternalID(ctx, r.db, r.logger, "slider_images", "slider image", externalID)
}

type announcementRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAnnouncementRepository creates a new announcement repository
func NewAnnouncementRepository(db *sql.DB, logger *zap.Logger) *announcementRepository {
	return &announcementRepository{db: db, logger: logger}
}

func (r *announcementRepository) Upsert(ctx context.Context, a *domain.Announcement) (bool, error) {
	var created bool
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO announcements (external_id, text, starts_at, ends_at, is_active, priority)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (external_id) DO UPDATE SET
			text = EXCLUDED.text,
			starts_at = EXCLUDED.starts_at,
			ends_at = EXCLUDED.ends_at,
			is_active = EXCLUDED.is_active,
			priority = EXCLUDED.priority,
			updated_at = now()
		RETURNING id, (xmax = 0)
	`, a.ExternalID, a.Text, a.StartsAt, a.EndsAt, a.IsActive, a.Priority).Scan(&a.ID, &created)
	if err != nil {
		r.logger.Error("Failed to upsert announcement", zap.String("external_id", a.ExternalID), zap.Error(err))
		return false, err
	}
	return created, nil
}

func (r *announcementRepository) UpsertBatch(ctx context.Context, as []*domain.Announcement) (int, int, error) {
	var created, updated int
	for _, a := range as {
		wasCreated, err := r.Upsert(ctx, a)
		if err != nil {
			return 0, 0, err
		}
		if wasCreated {
			created++
		} else {
			updated++
		}
	}
	return created, updated, nil
}

func (r *announcementRepository) ListActive(ctx context.Context) ([]*domain.Announcement, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, external_id, text, starts_at, ends_at, is_active, priority, created_at, updated_at
		FROM announcements
		WHERE is_active = true
		  AND (starts_at IS NULL OR starts_at <= now())
		  AND (ends_at IS NULL OR ends_at >= now())
		ORDER BY priority DESC, starts_at DESC NULLS LAST
	`)
	if err != nil {
		r.logger.Error("Failed to query announcements", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var announcements []*domain.Announcement
	for rows.Next() {
		var (
			a                domain.Announcement
			startsAt, endsAt sql.NullTime
		)
		if err := rows.Scan(
			&a.ID, &a.ExternalID, &a.Text, &startsAt, &endsAt,
			&a.IsActive, &a.Priority, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if startsAt.Valid {
			a.StartsAt = &startsAt.Time
		}
		if endsAt.Valid {
			a.EndsAt = &endsAt.Time
		}
		announcements = append(announcements, &a)
	}
	return announcements, rows.Err()
}

func (r *announcementRepository) DeleteByExternalID(ctx context.Context, externalID string) error {
	return deleteByExternalID(ctx, r.db, r.logger, "announcements", "announcement", externalID)
}

func deleteByExternalID(ctx context.Context, db *sql.DB, logger *zap.Logger, table, resource, externalID string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM `+table+` WHERE external_id = $1`, externalID)
	if err != nil {
		logger.Error("Failed to delete "+resource, zap.Error(err))
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &errors.ErrNotFound{Resource: resource, ID: externalID}
	}
	return nil
}
