// Package repository provides the optional compile-run history database.
package repository

import (
	"context"

	"github.com/dataflow-compiler/pkg/model"
)

// RunRepository stores and retrieves compile-run records.
type RunRepository interface {
	// SaveRun persists one compile run.
	SaveRun(ctx context.Context, run *model.CompileReport, request *model.CompileRequest) error

	// GetLatestRun retrieves the most recent run for a design.
	GetLatestRun(ctx context.Context, designName string) (*model.CompileReport, error)

	// ListRecentRuns retrieves the most recent runs across all designs.
	ListRecentRuns(ctx context.Context, limit int) ([]*model.CompileReport, error)
}
