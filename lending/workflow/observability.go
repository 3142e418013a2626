package workflow

import (
	"context"
	"time"

	"github.com/bookshare/lending/lending"
)

const (
	// MetricCommandDuration tracks workflow command execution duration.
	MetricCommandDuration = "lending_workflow_command_duration_seconds"
	// MetricCommandCalls tracks total workflow command calls by outcome.
	MetricCommandCalls = "lending_workflow_command_calls_total"
	// MetricRetries tracks retries after optimistic version conflicts.
	MetricRetries = "lending_workflow_retries_total"
	// MetricRetryDelay tracks the backoff delay before each retry.
	MetricRetryDelay = "lending_workflow_retry_delay_seconds"
	// MetricMaxRetriesReached tracks commands that gave up after all attempts.
	MetricMaxRetriesReached = "lending_workflow_max_retries_reached_total"

	// LogMsgCommandStarted is logged when command processing begins.
	LogMsgCommandStarted = "lending command started"
	// LogMsgCommandCompleted is logged when command processing succeeds.
	LogMsgCommandCompleted = "lending command completed"
	// LogMsgCommandFailed is logged when command processing fails.
	LogMsgCommandFailed = "lending command failed"

	LogAttrCommandType = "command_type"
	LogAttrOutcome     = "outcome"
	LogAttrDurationMS  = "duration_ms"
	LogAttrError       = "error"
	LogAttrBookID      = "book_id"
	LogAttrCallerID    = "caller_id"
	LogAttrNewOwnerID  = "new_owner_id"

	labelAttemptNumber = "attempt_number"

	// SpanNamePrefix prefixes the tracing span name of every command.
	SpanNamePrefix = "lending."

	spanStatusOK    = "OK"
	spanStatusError = "ERROR"
)

// Command types, used in logs, metric labels and span names.
const (
	CommandListBook      = "list_book"
	CommandDelistBook    = "delist_book"
	CommandRequestBook   = "request_book"
	CommandGrantRequest  = "grant_request"
	CommandRejectRequest = "reject_request"
	CommandAddBook       = "add_book"
	CommandDeleteBook    = "delete_book"
	CommandRegisterUser  = "register_user"
)

func (e *Engine) startSpan(ctx context.Context, command string, attrs map[string]string) (context.Context, lending.SpanContext) {
	if e.tracingCollector == nil {
		return ctx, nil
	}

	return e.tracingCollector.StartSpan(ctx, SpanNamePrefix+command, attrs)
}

func (e *Engine) logCommandStarted(ctx context.Context, command string, attrs map[string]string) {
	args := []any{LogAttrCommandType, command}
	for key, value := range attrs {
		args = append(args, key, value)
	}

	switch {
	case e.contextualLogger != nil:
		e.contextualLogger.DebugContext(ctx, LogMsgCommandStarted, args...)
	case e.logger != nil:
		e.logger.Debug(LogMsgCommandStarted, args...)
	}
}

// finishCommand records logs, metrics and the span outcome of a finished command.
func (e *Engine) finishCommand(
	ctx context.Context,
	span lending.SpanContext,
	command string,
	duration time.Duration,
	err error,
) {

	outcome := lending.OutcomeOf(err).String()
	args := []any{
		LogAttrCommandType, command,
		LogAttrOutcome, outcome,
		LogAttrDurationMS, toMilliseconds(duration),
	}

	switch {
	case err == nil && e.contextualLogger != nil:
		e.contextualLogger.InfoContext(ctx, LogMsgCommandCompleted, args...)
	case err == nil && e.logger != nil:
		e.logger.Info(LogMsgCommandCompleted, args...)
	case e.contextualLogger != nil:
		e.contextualLogger.WarnContext(ctx, LogMsgCommandFailed, append(args, LogAttrError, err.Error())...)
	case e.logger != nil:
		e.logger.Warn(LogMsgCommandFailed, append(args, LogAttrError, err.Error())...)
	}

	if e.metricsCollector != nil {
		labels := map[string]string{LogAttrCommandType: command, LogAttrOutcome: outcome}
		e.metricsCollector.RecordDuration(MetricCommandDuration, duration, labels)
		e.metricsCollector.IncrementCounter(MetricCommandCalls, labels)
	}

	if e.tracingCollector != nil && span != nil {
		status := spanStatusOK
		if err != nil {
			status = spanStatusError
		}

		e.tracingCollector.FinishSpan(span, status, map[string]string{LogAttrOutcome: outcome})
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with precision.
func toMilliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
