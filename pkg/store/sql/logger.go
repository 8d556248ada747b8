package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// loggerAdaptor routes gorm's logging through logrus so SQL tracing shares
// the process-wide log configuration.
type loggerAdaptor struct {
	Logger *logrus.Logger
	Config LoggerAdaptorConfig
}

type LoggerAdaptorConfig struct {
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
}

//nolint:ireturn
func NewLoggerAdaptor(l *logrus.Logger, cfg LoggerAdaptorConfig) logger.Interface {
	return &loggerAdaptor{l, cfg}
}

// LogMode implements the gorm.io/gorm/logger.Interface interface and is a no-op.
//
//nolint:ireturn
func (l *loggerAdaptor) LogMode(_ logger.LogLevel) logger.Interface {
	return l
}

func (l *loggerAdaptor) Info(ctx context.Context, format string, args ...interface{}) {
	l.Logger.WithContext(ctx).Infof(format, args...)
}

func (l *loggerAdaptor) Warn(ctx context.Context, format string, args ...interface{}) {
	l.Logger.WithContext(ctx).Warnf(format, args...)
}

func (l *loggerAdaptor) Error(ctx context.Context, format string, args ...interface{}) {
	l.Logger.WithContext(ctx).Errorf(format, args...)
}

func (l *loggerAdaptor) entryWithSQL(
	ctx context.Context,
	elapsed time.Duration,
	fc func() (string, int64),
) *logrus.Entry {
	entry := l.Logger.WithContext(ctx)
	if fc != nil {
		sql, rows := fc()
		entry = entry.WithFields(logrus.Fields{
			"elapsed": fmt.Sprintf("%.3fms", float64(elapsed.Nanoseconds())/1e6),
			"rows":    rows,
			"sql":     sql,
		})
		if rows == -1 {
			entry = entry.WithField("rows", "-")
		}
	}
	return entry
}

// Trace logs the SQL statement, affected row count and elapsed time.
func (l *loggerAdaptor) Trace(
	ctx context.Context,
	begin time.Time,
	fc func() (string, int64),
	err error,
) {
	if l.Logger.GetLevel() <= logrus.FatalLevel {
		return
	}

	elapsed := time.Since(begin)

	switch {
	case err != nil &&
		l.Logger.IsLevelEnabled(logrus.ErrorLevel) &&
		(!errors.Is(err, gorm.ErrRecordNotFound) || !l.Config.IgnoreRecordNotFoundError):
		l.entryWithSQL(ctx, elapsed, fc).WithError(err).Error("SQL error")
	case l.Config.SlowThreshold != 0 &&
		elapsed > l.Config.SlowThreshold &&
		l.Logger.IsLevelEnabled(logrus.WarnLevel):
		l.entryWithSQL(ctx, elapsed, fc).Warnf("SLOW SQL >= %v", l.Config.SlowThreshold)
	case l.Logger.IsLevelEnabled(logrus.DebugLevel):
		l.entryWithSQL(ctx, elapsed, fc).Debug("SQL trace")
	}
}
