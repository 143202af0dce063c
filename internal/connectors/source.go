// Package connectors defines the provider contract used by the sync service
// and the HTTP plumbing shared by every provider client.
package connectors

import (
	"context"

	"github.com/irfndi/oddsradar-go/internal/models"
)

// Source is an upstream odds provider.
type Source interface {
	// Name is the provider key recorded in sync state ("the_odds_api").
	Name() string
	// Fetch pulls every configured market once. Partial failures are reported
	// in FetchResult.Errors; an error return means nothing usable was fetched.
	Fetch(ctx context.Context) (*FetchResult, error)
}

// FetchResult is one provider's normalized output for a sync cycle.
type FetchResult struct {
	Provider string
	Events   []models.NormalizedEvent
	Odds     []models.NormalizedOdds
	Errors   []string
	Requests int64
}

// Breaker guards calls to a provider. services.CircuitBreaker satisfies it.
type Breaker interface {
	Execute(ctx context.Context, fn func(context.Context) error) error
}

type noopBreaker struct{}

func (noopBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}
