package repository

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/dataflow-compiler/pkg/model"
)

// JSONField stores arbitrary JSON in a single column.
type JSONField []byte

// Value implements driver.Valuer.
func (j JSONField) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements sql.Scanner.
func (j *JSONField) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
	case string:
		*j = JSONField(v)
	default:
		return errors.New("unsupported type for JSONField")
	}
	return nil
}

// CompileRun represents the compile_runs table.
type CompileRun struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	DesignName  string    `gorm:"column:design_name;type:varchar(128);index"`
	Status      string    `gorm:"column:status;type:varchar(16)"`
	ExitCode    int       `gorm:"column:exit_code"`
	Error       string    `gorm:"column:error;type:text"`
	NodeCount   int       `gorm:"column:node_count"`
	ArcCount    int       `gorm:"column:arc_count"`
	FIFOCount   int       `gorm:"column:fifo_count"`
	PrunedNodes int       `gorm:"column:pruned_nodes"`
	Request     JSONField `gorm:"column:request;type:json"`
	Passes      JSONField `gorm:"column:passes;type:json"`
	CreateTime  time.Time `gorm:"column:create_time;autoCreateTime"`
}

// TableName returns the table name for CompileRun.
func (CompileRun) TableName() string {
	return "compile_runs"
}

// FromReport builds a row from a report and its request.
func FromReport(report *model.CompileReport, request *model.CompileRequest) (*CompileRun, error) {
	run := &CompileRun{
		DesignName:  report.DesignName,
		Status:      string(report.Status),
		ExitCode:    report.ExitCode,
		Error:       report.Error,
		NodeCount:   report.NodeCount,
		ArcCount:    report.ArcCount,
		FIFOCount:   report.FIFOCount,
		PrunedNodes: report.PrunedNodes,
	}
	if request != nil {
		raw, err := json.Marshal(request)
		if err != nil {
			return nil, err
		}
		run.Request = raw
	}
	if len(report.Passes) > 0 {
		raw, err := json.Marshal(report.Passes)
		if err != nil {
			return nil, err
		}
		run.Passes = raw
	}
	return run, nil
}

// ToReport converts a row back to a report.
func (r *CompileRun) ToReport() *model.CompileReport {
	report := &model.CompileReport{
		DesignName:  r.DesignName,
		Status:      model.CompileStatus(r.Status),
		ExitCode:    r.ExitCode,
		Error:       r.Error,
		NodeCount:   r.NodeCount,
		ArcCount:    r.ArcCount,
		FIFOCount:   r.FIFOCount,
		PrunedNodes: r.PrunedNodes,
	}
	if len(r.Passes) > 0 {
		_ = json.Unmarshal(r.Passes, &report.Passes)
	}
	return report
}
