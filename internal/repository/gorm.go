package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	apperrors "github.com/dataflow-compiler/pkg/errors"
	"github.com/dataflow-compiler/pkg/model"
)

// GormRunRepository implements RunRepository using GORM.
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GormRunRepository.
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// AutoMigrate creates or updates the compile_runs table.
func (r *GormRunRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&CompileRun{})
}

// SaveRun persists one compile run.
func (r *GormRunRepository) SaveRun(ctx context.Context, report *model.CompileReport, request *model.CompileRequest) error {
	run, err := FromReport(report, request)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to serialize compile run", err)
	}
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to save compile run", err)
	}
	return nil
}

// GetLatestRun retrieves the most recent run for a design.
func (r *GormRunRepository) GetLatestRun(ctx context.Context, designName string) (*model.CompileReport, error) {
	var run CompileRun
	err := r.db.WithContext(ctx).
		Where("design_name = ?", designName).
		Order("id DESC").
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.CodeDatabaseError, "no compile runs for design %s", designName)
		}
		return nil, fmt.Errorf("failed to query compile run: %w", err)
	}
	return run.ToReport(), nil
}

// ListRecentRuns retrieves the most recent runs across all designs.
func (r *GormRunRepository) ListRecentRuns(ctx context.Context, limit int) ([]*model.CompileReport, error) {
	var runs []CompileRun
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list compile runs: %w", err)
	}

	reports := make([]*model.CompileReport, len(runs))
	for i := range runs {
		reports[i] = runs[i].ToReport()
	}
	return reports, nil
}
