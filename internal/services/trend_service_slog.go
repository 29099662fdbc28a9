package services

import (
	"context"
	"log/slog"

	"pollpulse/internal/infrastructure"
)

// Helper functions for trend service logging using centralized infrastructure logger

// logTrendError logs an error in trend service operations
func logTrendError(ctx context.Context, action, message string, attrs ...slog.Attr) {
	logger := infrastructure.LoggerWithContext(ctx)

	// Add standard attributes
	allAttrs := []slog.Attr{
		slog.String("component", "trend_service"),
		slog.String("action", action),
	}

	allAttrs = append(allAttrs, attrs...)

	logger.LogAttrs(ctx, slog.LevelError, message, allAttrs...)
}
