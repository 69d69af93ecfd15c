// Package approvals adapts the bulk approvals registry. All reads go through
// the bulk cache manager; a search blocks on Ensure until a warm snapshot is
// available instead of hitting the origin per query.
package approvals

import (
	"context"
	"log/slog"

	"drugwatch/internal/bulkcache"
	"drugwatch/internal/domain"
	"drugwatch/pkg/platform/sentinel"
)

type Client struct {
	manager *bulkcache.Manager
	logger  *slog.Logger
}

func New(manager *bulkcache.Manager, logger *slog.Logger) *Client {
	return &Client{
		manager: manager,
		logger:  logger.With("component", "approvals"),
	}
}

// Search queries the in-memory indices. In automatic mode a name scan runs
// first; the ingredient index is consulted only when the scan yields
// nothing.
func (c *Client) Search(ctx context.Context, term string, mode domain.SearchMode) ([]domain.Approval, error) {
	snap, err := c.manager.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	switch mode {
	case domain.ModeName:
		return snap.SearchByName(term), nil
	case domain.ModeIngredient:
		return snap.SearchByIngredient(term), nil
	default:
		if byName := snap.SearchByName(term); len(byName) > 0 {
			return byName, nil
		}
		return snap.SearchByIngredient(term), nil
	}
}

// GetByNumber looks up one approval by decision number.
func (c *Client) GetByNumber(ctx context.Context, number string) (domain.Approval, error) {
	snap, err := c.manager.Ensure(ctx)
	if err != nil {
		return domain.Approval{}, err
	}
	a, ok := snap.GetByNumber(number)
	if !ok {
		return domain.Approval{}, sentinel.ErrNotFound
	}
	return a, nil
}
