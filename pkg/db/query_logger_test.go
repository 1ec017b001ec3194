package db

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
)

func openLogged(t *testing.T, slow time.Duration) (*gorm.DB, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "db-test", Output: buf, Format: "json"})
	conn, err := gorm.Open(sqlite.Open("file:qlog_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:                 newQueryLogger(logg, slow),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&testModel{}))
	buf.Reset()
	return conn, buf
}

func TestQueryLoggerReportsFailures(t *testing.T) {
	conn, buf := openLogged(t, time.Hour)

	err := conn.Exec("SELECT * FROM missing_table").Error
	require.Error(t, err)
	require.Contains(t, buf.String(), "db.query_failed")
	require.Contains(t, buf.String(), "missing_table")
}

func TestQueryLoggerIgnoresNotFoundAndFastQueries(t *testing.T) {
	conn, buf := openLogged(t, time.Hour)

	var row testModel
	err := conn.WithContext(context.Background()).First(&row, "name = ?", "nobody").Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	require.NoError(t, conn.Create(&testModel{Name: "fast"}).Error)
	require.Empty(t, buf.String())
}

func TestQueryLoggerReportsSlowQueries(t *testing.T) {
	conn, buf := openLogged(t, time.Nanosecond)

	require.NoError(t, conn.Create(&testModel{Name: "slow"}).Error)
	require.Contains(t, buf.String(), "db.slow_query")
}

func TestQueryLoggerSilentMode(t *testing.T) {
	conn, buf := openLogged(t, time.Nanosecond)

	silent := conn.Session(&gorm.Session{Logger: conn.Logger.LogMode(gormlogger.Silent)})
	_ = silent.Exec("SELECT * FROM missing_table").Error
	require.Empty(t, buf.String())
}
