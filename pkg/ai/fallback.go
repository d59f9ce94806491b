package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/rs/zerolog"
)

// FallbackService tries the primary provider and falls back to the secondary one
// when it fails. The caller's deadline covers both attempts.
type FallbackService struct {
	primary   ReplyGenerator
	secondary ReplyGenerator
	logger    zerolog.Logger
}

// NewFallbackService creates a new fallback service with both providers
func NewFallbackService(primary, secondary ReplyGenerator, logger zerolog.Logger) *FallbackService {
	return &FallbackService{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	connectionIndicators := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	}

	for _, indicator := range connectionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	quotaIndicators := []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
		"resource_exhausted",
	}

	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// failureReason labels a provider error for logs.
func failureReason(err error) string {
	switch {
	case isQuotaError(err):
		return "quota"
	case isConnectionError(err):
		return "connection"
	default:
		return "error"
	}
}

// GenerateReply implements ReplyGenerator.
func (f *FallbackService) GenerateReply(ctx context.Context, prompt string) (string, error) {
	var primaryErr error
	if f.primary != nil {
		text, err := f.primary.GenerateReply(ctx, prompt)
		if err == nil {
			return text, nil
		}
		primaryErr = err
		if ctx.Err() != nil {
			return "", fmt.Errorf("primary provider: %w", err)
		}
		f.logger.Warn().Err(err).Str("reason", failureReason(err)).Msg("primary provider failed, falling back")
	}

	if f.secondary == nil {
		if primaryErr != nil {
			return "", fmt.Errorf("primary provider: %w", primaryErr)
		}
		return "", ErrNoProvider
	}

	text, err := f.secondary.GenerateReply(ctx, prompt)
	if err != nil {
		if primaryErr != nil {
			return "", fmt.Errorf("all providers failed: %w", errors.Join(primaryErr, err))
		}
		return "", fmt.Errorf("fallback provider: %w", err)
	}
	return text, nil
}
