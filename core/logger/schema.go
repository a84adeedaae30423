package logger

import "strings"

const (
	// LevelDebug represents the debug severity level name.
	LevelDebug = "DEBUG"
	// LevelInfo represents the info severity level name.
	LevelInfo = "INFO"
	// LevelWarn represents the warning severity level name.
	LevelWarn = "WARN"
	// LevelError represents the error severity level name.
	LevelError = "ERROR"
)

var allowedLevels = map[string]string{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

var statusAliases = map[string]string{
	"ok":        "ok",
	"success":   "ok",
	"fail":      "fail",
	"failed":    "fail",
	"error":     "fail",
	"skip":      "skip",
	"retry":     "retry",
	"duplicate": "duplicate",
	"limited":   "rate_limited",
	"cancelled": "cancelled",
	"canceled":  "cancelled",
}

// Outcomes describe how a conversation rule ended from the sender's point of view.
var allowedOutcome = map[string]string{
	"ok":           "ok",
	"fail":         "fail",
	"reprompt":     "reprompt",
	"conflict":     "conflict",
	"timeout":      "timeout",
	"cancelled":    "cancelled",
	"rate_limited": "rate_limited",
}

func normalizeLevel(level string) string {
	if level == "" {
		return LevelInfo
	}
	if mapped, ok := allowedLevels[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if mapped, ok := statusAliases[status]; ok {
		return mapped
	}
	return status
}

func normalizeOutcome(outcome string) (string, bool) {
	val, ok := allowedOutcome[strings.ToLower(strings.TrimSpace(outcome))]
	return val, ok
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"trace_id",
	"span_id",
	"ts_unix_nano",
	"transport",
	"message_id",
	"sender",
	"handler",
	"rule",
	"step",
	"step_next",
	"outcome",
	"attempt",
	"attempts",
	"duration_ms",
	"collaborator",
	"action",
	"http_code",
	"method",
	"path",
	"mode",
	"listen",
	"public_url",
	"db",
	"driver",
	"host",
	"port",
	"err",
	"error_kind",
	"err_code",
	"retryable",
	"backoff_ms",
	"queue",
	"sessions",
}
