package cache

import (
	"context"
	"time"

	"github.com/flexprice/installments/internal/types"
)

const (
	ExpiryDefaultInMemory = 30 * time.Minute
	ExpiryDefaultRedis    = 5 * time.Minute

	// PrefixInstallmentSummary is followed by subscriber id, generation and as-of date
	PrefixInstallmentSummary = "installment_summary:"

	// PrefixSummaryGeneration is followed by subscriber id. It must not share
	// PrefixInstallmentSummary or DeleteByPrefix would drop the generation too.
	PrefixSummaryGeneration = "installment_summary_gen:"

	// initialGeneration is read when no write has bumped the subscriber yet
	initialGeneration = "0"

	minGenerationTTL = 24 * time.Hour
)

// Cache is a best effort key/value cache. Failures are logged, never returned.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)
	Delete(ctx context.Context, key string)
	DeleteByPrefix(ctx context.Context, prefix string)
	Flush(ctx context.Context)
}

// SummaryKey is the cache key of a plan summary for one subscriber, generation and day
func SummaryKey(subscriberID, generation, asOf string) string {
	return SummaryPrefix(subscriberID) + generation + ":" + asOf
}

// SummaryPrefix covers every cached summary of the subscriber
func SummaryPrefix(subscriberID string) string {
	return PrefixInstallmentSummary + subscriberID + ":"
}

// SummaryGenerationKey holds the subscriber's current summary generation
func SummaryGenerationKey(subscriberID string) string {
	return PrefixSummaryGeneration + subscriberID
}

// SummaryGeneration returns the subscriber's current summary generation.
// Readers must take it before loading the plan: a summary built from a plan
// read before a write is then stored under the generation that write retired.
func SummaryGeneration(ctx context.Context, c Cache, subscriberID string) string {
	value, found := c.Get(ctx, SummaryGenerationKey(subscriberID))
	if !found {
		return initialGeneration
	}
	if generation, ok := value.(string); ok && generation != "" {
		return generation
	}
	return initialGeneration
}

// InvalidateSummaries retires every cached summary of the subscriber.
// Call it after the write has committed.
func InvalidateSummaries(ctx context.Context, c Cache, subscriberID string, summaryTTL time.Duration) {
	c.Set(ctx, SummaryGenerationKey(subscriberID), types.GenerateUUID(), generationTTL(summaryTTL))
	c.DeleteByPrefix(ctx, SummaryPrefix(subscriberID))
}

// generationTTL outlives any summary written under an older generation, so an
// expired generation can never resurrect a stale entry
func generationTTL(summaryTTL time.Duration) time.Duration {
	if ttl := 2 * summaryTTL; ttl > minGenerationTTL {
		return ttl
	}
	return minGenerationTTL
}
