package sqlengine

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/bookshare/lending/lending"
	"github.com/bookshare/lending/lending/sqlengine/internal/adapters"
)

// sqlBuilder is satisfied by all goqu datasets.
type sqlBuilder interface {
	ToSQL() (string, []any, error)
}

// session binds the store's statement helpers to a connection or an open transaction.
type session struct {
	store *Store
	q     adapters.Querier
}

// query builds and runs a select statement. The caller must close the returned rows.
func (ss session) query(ctx context.Context, action string, builder sqlBuilder) (adapters.DBRows, error) {
	sqlQuery, args, err := ss.build(ctx, builder)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, queryErr := ss.q.Query(ctx, sqlQuery, args...)
	duration := time.Since(start)
	ss.store.logQueryWithDuration(ctx, sqlQuery, action, duration)

	if queryErr != nil {
		ss.store.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		ss.store.recordMetrics(action, duration, statusError)
		return nil, ss.store.mapError(queryErr)
	}

	ss.store.recordMetrics(action, duration, statusSuccess)

	return rows, nil
}

// exec builds and runs a write statement and returns the number of affected rows.
func (ss session) exec(ctx context.Context, action string, builder sqlBuilder) (int64, error) {
	sqlQuery, args, err := ss.build(ctx, builder)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	result, execErr := ss.q.Exec(ctx, sqlQuery, args...)
	duration := time.Since(start)
	ss.store.logQueryWithDuration(ctx, sqlQuery, action, duration)

	if execErr != nil {
		ss.store.logError(ctx, logMsgDBExecFailed, execErr, logAttrQuery, sqlQuery)
		ss.store.recordMetrics(action, duration, statusError)
		return 0, ss.store.mapError(execErr)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		ss.store.logError(ctx, logMsgRowsAffectedFailed, rowsAffectedErr)
		return 0, errors.Join(lending.ErrStoreFailure, rowsAffectedErr)
	}

	ss.store.recordMetrics(action, duration, statusSuccess)

	return rowsAffected, nil
}

func (ss session) build(ctx context.Context, builder sqlBuilder) (string, []any, error) {
	sqlQuery, args, toSQLErr := builder.ToSQL()
	if toSQLErr != nil {
		ss.store.logError(ctx, logMsgBuildQueryFailed, toSQLErr)
		return "", nil, errors.Join(lending.ErrStoreFailure, lending.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, args, nil
}

// closeRows safely closes database rows and logs any errors.
func (ss session) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		ss.store.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

// scanFailed logs and wraps a row scan or iteration error.
func (ss session) scanFailed(ctx context.Context, err error) error {
	ss.store.logError(ctx, logMsgScanRowFailed, err)
	return errors.Join(lending.ErrStoreFailure, lending.ErrScanningDBRowFailed, err)
}

// logQueryWithDuration logs SQL statements with execution time at debug level if a logger is configured.
func (s *Store) logQueryWithDuration(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	args := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery}

	switch {
	case s.contextualLogger != nil:
		s.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
	case s.logger != nil:
		s.logger.Debug(logMsgSQLExecuted+action, args...)
	}
}

// logOperation logs operational information at info level if a logger is configured.
func (s *Store) logOperation(ctx context.Context, action string, args ...any) {
	switch {
	case s.contextualLogger != nil:
		s.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	case s.logger != nil:
		s.logger.Info(logMsgOperation+action, args...)
	}
}

func (s *Store) logWarn(ctx context.Context, message string, args ...any) {
	switch {
	case s.contextualLogger != nil:
		s.contextualLogger.WarnContext(ctx, message, args...)
	case s.logger != nil:
		s.logger.Warn(message, args...)
	}
}

// logError logs error information at the error level if a logger is configured.
func (s *Store) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	switch {
	case s.contextualLogger != nil:
		s.contextualLogger.ErrorContext(ctx, message, allArgs...)
	case s.logger != nil:
		s.logger.Error(message, allArgs...)
	}
}

func (s *Store) recordMetrics(action string, duration time.Duration, status string) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{labelAction: action, labelStatus: status}
	s.metricsCollector.RecordDuration(metricStoreDuration, duration, labels)

	if status == statusError {
		s.metricsCollector.IncrementCounter(metricStoreErrors, labels)
	}
}

func (s *Store) recordConcurrencyConflict(action string) {
	if s.metricsCollector != nil {
		s.metricsCollector.IncrementCounter(metricConcurrencyConflicts, map[string]string{labelAction: action})
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
