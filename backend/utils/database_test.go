package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm/logger"
)

func observedGormLogger(level logger.LogLevel) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level), logs
}

func statement() (string, int64) { return "SELECT 1", 1 }

func TestGormLoggerTrace(t *testing.T) {
	l, logs := observedGormLogger(logger.Warn)
	ctx := context.Background()

	l.Trace(ctx, time.Now(), statement, errors.New("boom"))
	l.Trace(ctx, time.Now(), statement, logger.ErrRecordNotFound)
	l.Trace(ctx, time.Now().Add(-time.Second), statement, nil)
	l.Trace(ctx, time.Now(), statement, nil)

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "SELECT 1", entries[0].ContextMap()["sql"])
	assert.Equal(t, "gorm", entries[0].LoggerName)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "slow sql", entries[1].Message)
}

func TestGormLoggerLogModeIsACopy(t *testing.T) {
	l, logs := observedGormLogger(logger.Warn)
	ctx := context.Background()

	silent := l.LogMode(logger.Silent)
	silent.Trace(ctx, time.Now(), statement, errors.New("boom"))
	silent.Error(ctx, "hidden %d", 1)
	assert.Zero(t, logs.Len())

	l.Info(ctx, "below level %s", "info")
	l.Warn(ctx, "missing %s", "index")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "missing index", logs.All()[0].Message)

	verbose := l.LogMode(logger.Info)
	verbose.Trace(ctx, time.Now(), statement, nil)
	assert.Equal(t, zapcore.DebugLevel, logs.All()[1].Level)
}
