package core

import (
	"context"
	"sort"
	"strings"
	"time"
)

// tagFields are the request fields promoted to metric tags when present.
var tagFields = []string{"aggregator", "user_id", "connection_id", "job_type"}

// observeOperation emits one log line and one counter/histogram pair per
// orchestrator operation. Every public Service method defers into it.
func (s *Service) observeOperation(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
) {
	if s == nil {
		return
	}
	operation = operationKey(operation)
	elapsed := time.Since(startedAt)
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}

	if s.metricsRecorder != nil {
		tags := operationTags(operation, outcome, fields)
		s.metricsRecorder.IncCounter(ctx, "connect."+operation+".total", 1, tags)
		s.metricsRecorder.ObserveHistogram(ctx, "connect."+operation+".duration_ms", float64(elapsed.Milliseconds()), tags)
	}

	s.logOperation(ctx, operation, outcome, elapsed, err, fields)
}

func (s *Service) logOperation(
	ctx context.Context,
	operation string,
	outcome string,
	elapsed time.Duration,
	err error,
	fields map[string]any,
) {
	if s.logger == nil {
		return
	}

	entry := make(map[string]any, len(fields)+4)
	for key, value := range fields {
		entry[key] = value
	}
	entry["event_type"] = operation
	entry["status"] = outcome
	entry["duration_ms"] = elapsed.Milliseconds()
	if err != nil {
		entry["error"] = err.Error()
	}

	logger := s.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(entry)
	}

	args := sortedLogArgs(entry)
	if err != nil {
		logger.Error(operation+" failed", args...)
		return
	}
	logger.Info(operation+" succeeded", args...)
}

func operationTags(operation string, outcome string, fields map[string]any) map[string]string {
	tags := map[string]string{
		"operation": operation,
		"status":    outcome,
	}
	for _, key := range tagFields {
		value, ok := fields[key].(string)
		if !ok {
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			tags[key] = value
		}
	}
	return tags
}

func sortedLogArgs(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}

func operationKey(operation string) string {
	operation = strings.TrimSpace(strings.ToLower(operation))
	operation = strings.ReplaceAll(operation, " ", "_")
	operation = strings.ReplaceAll(operation, "-", "_")
	if operation == "" {
		return "unknown"
	}
	return operation
}
