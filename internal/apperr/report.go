package apperr

import (
	"context"
	"log/slog"
)

// Severity is the tier an error is logged at.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityOf maps a kind to its default severity.
func SeverityOf(kind Kind) Severity {
	switch kind {
	case KindDuplicate, KindNoEntries, KindMalformed:
		return SeverityLow
	case KindNetwork, KindTimeout, KindServer, KindQuota, KindValidation, KindNotFound:
		return SeverityMedium
	case KindAuth, KindForbidden:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

func (s Severity) level() slog.Level {
	switch s {
	case SeverityLow:
		return slog.LevelDebug
	case SeverityMedium:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// Log records err with its severity tier, the action being attempted and structured context.
func Log(ctx context.Context, logger *slog.Logger, err error, action string, attrs ...any) {
	if err == nil {
		return
	}
	LogWithSeverity(ctx, logger, err, SeverityOf(KindOf(err)), action, attrs...)
}

// LogWithSeverity is Log with an explicit severity tier.
func LogWithSeverity(ctx context.Context, logger *slog.Logger, err error, severity Severity, action string, attrs ...any) {
	if err == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	args := append([]any{
		"action", action,
		"kind", string(KindOf(err)),
		"severity", string(severity),
		"error", err.Error(),
	}, attrs...)
	logger.Log(ctx, severity.level(), "operation failed", args...)
}

var userMessages = map[Kind]string{
	KindAuth:       "Please sign in again to continue.",
	KindNetwork:    "We couldn't reach the server. Check your connection and try again.",
	KindTimeout:    "This is taking longer than expected. Please try again in a moment.",
	KindServer:     "Our companion is having trouble right now. Please try again shortly.",
	KindQuota:      "Your companion needs a short break. Please try again later.",
	KindForbidden:  "You don't have access to this.",
	KindValidation: "Some of the values you entered aren't valid.",
	KindMalformed:  "We received an unexpected response. Please try again.",
	KindNotFound:   "We couldn't find what you were looking for.",
	KindDuplicate:  "You already have a recent check-in.",
	KindNoEntries:  "Write a few entries this week to unlock your weekly insight.",
}

// UserMessage derives a user-facing message from the error kind, never from error text.
func UserMessage(err error) string {
	if msg, ok := userMessages[KindOf(err)]; ok {
		return msg
	}
	return "Something went wrong. Please try again."
}
