package domain

import (
	"fmt"
	"time"

	apperrors "github.com/louisbranch/roleandroll/internal/platform/errors"
	"github.com/louisbranch/roleandroll/internal/platform/money"
)

// DefaultFeeBasisPoints is the platform fee before an admin configures one.
const DefaultFeeBasisPoints = 1000

// SiteConfig is the singleton platform configuration.
type SiteConfig struct {
	FeeBasisPoints int
	Maintenance    bool
	UpdatedBy      string
	UpdatedAt      time.Time
}

// DefaultSiteConfig returns the configuration used before any update.
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{FeeBasisPoints: DefaultFeeBasisPoints}
}

// SiteConfigPatch carries optional site configuration updates.
type SiteConfigPatch struct {
	FeeBasisPoints *int
	Maintenance    *bool
}

// ApplySiteConfig validates and applies a patch made by adminID.
func ApplySiteConfig(current SiteConfig, patch SiteConfigPatch, adminID string, now time.Time) (SiteConfig, error) {
	if adminID == "" {
		return SiteConfig{}, apperrors.New(apperrors.CodeInvalidArgument, "admin id is required")
	}
	if patch.FeeBasisPoints != nil {
		bps := *patch.FeeBasisPoints
		if bps < 0 || bps > money.MaxFeeBasisPoints {
			return SiteConfig{}, apperrors.WithMetadata(
				apperrors.CodeInvalidArgument,
				fmt.Sprintf("fee must be between 0 and %d basis points", money.MaxFeeBasisPoints),
				map[string]string{"Field": "fee_basis_points"},
			)
		}
		current.FeeBasisPoints = bps
	}
	if patch.Maintenance != nil {
		current.Maintenance = *patch.Maintenance
	}
	current.UpdatedBy = adminID
	current.UpdatedAt = now.UTC()
	return current, nil
}
