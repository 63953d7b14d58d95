package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dataflow-compiler/pkg/model"
)

func setupMockMySQL(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return gdb, mock
}

func TestGormRunRepository_SaveRun_SQL(t *testing.T) {
	gdb, mock := setupMockMySQL(t)
	repo := NewGormRunRepository(gdb)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `compile_runs`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.SaveRun(context.Background(),
		sampleReport("radio_rx", model.StatusSucceeded),
		&model.CompileRequest{DesignName: "radio_rx"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRunRepository_GetLatestRun_SQL(t *testing.T) {
	gdb, mock := setupMockMySQL(t)
	repo := NewGormRunRepository(gdb)

	rows := sqlmock.NewRows([]string{"id", "design_name", "status", "exit_code", "node_count"}).
		AddRow(7, "radio_rx", "succeeded", 0, 42)
	mock.ExpectQuery("SELECT \\* FROM `compile_runs` WHERE design_name = \\?").
		WillReturnRows(rows)

	report, err := repo.GetLatestRun(context.Background(), "radio_rx")
	require.NoError(t, err)
	assert.Equal(t, model.StatusSucceeded, report.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
