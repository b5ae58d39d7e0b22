package ai

import (
	"context"
	"errors"
	"log"
	"net"
	"strings"
)

// FallbackService routes to Gemini first and falls back to the local Ollama
// instance when Gemini is unreachable or out of quota. Schema-invalid output
// is NOT retried on the other provider: a model that answered wrongly is a
// different failure than a provider that never answered.
type FallbackService struct {
	gemini ClassifierService
	ollama *OllamaService
}

// NewFallbackService creates a new fallback service with both providers.
func NewFallbackService(gemini ClassifierService, ollama *OllamaService) *FallbackService {
	return &FallbackService{
		gemini: gemini,
		ollama: ollama,
	}
}

// ClassifyEmail implements ClassifierService.
func (f *FallbackService) ClassifyEmail(ctx context.Context, subject, body string) (*Classification, error) {
	c, err := f.gemini.ClassifyEmail(ctx, subject, body)
	if err != nil && shouldFallback(err) {
		log.Printf("[AI] Gemini unavailable (%v), falling back to Ollama for classification", err)
		return f.ollama.ClassifyEmail(ctx, subject, body)
	}
	return c, err
}

// DraftReply implements ClassifierService.
func (f *FallbackService) DraftReply(ctx context.Context, d DraftContext) (string, error) {
	text, err := f.gemini.DraftReply(ctx, d)
	if err != nil && shouldFallback(err) {
		log.Printf("[AI] Gemini unavailable (%v), falling back to Ollama for drafting", err)
		return f.ollama.DraftReply(ctx, d)
	}
	return text, err
}

func shouldFallback(err error) bool {
	if errors.Is(err, ErrInvalidResponse) || errors.Is(err, ErrNoResponse) {
		return false
	}
	return isConnectionError(err) || isQuotaError(err)
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
	}
	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}
