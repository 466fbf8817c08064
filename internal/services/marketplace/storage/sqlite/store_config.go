package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/roleandroll/internal/services/marketplace/domain"
)

// GetSiteConfig returns the stored site configuration or the defaults.
func (s *Store) GetSiteConfig(ctx context.Context) (domain.SiteConfig, error) {
	if err := s.ready(ctx); err != nil {
		return domain.SiteConfig{}, err
	}
	var cfg domain.SiteConfig
	var maintenance int
	var updatedAt int64
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT fee_basis_points, maintenance, updated_by, updated_at
FROM site_config
WHERE id = 1
`).Scan(&cfg.FeeBasisPoints, &maintenance, &cfg.UpdatedBy, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DefaultSiteConfig(), nil
		}
		return domain.SiteConfig{}, fmt.Errorf("get site config: %w", err)
	}
	cfg.Maintenance = maintenance != 0
	cfg.UpdatedAt = fromMillis(updatedAt)
	return cfg, nil
}

// PutSiteConfig replaces the site configuration.
func (s *Store) PutSiteConfig(ctx context.Context, cfg domain.SiteConfig) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO site_config (id, fee_basis_points, maintenance, updated_by, updated_at)
VALUES (1, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	fee_basis_points = excluded.fee_basis_points,
	maintenance = excluded.maintenance,
	updated_by = excluded.updated_by,
	updated_at = excluded.updated_at
`, cfg.FeeBasisPoints, boolToInt(cfg.Maintenance), cfg.UpdatedBy, toMillis(cfg.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put site config: %w", err)
	}
	return nil
}
