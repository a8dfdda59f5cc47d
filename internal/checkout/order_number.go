package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// OrderNumberSource supplies the current sequence position for a number
// prefix. The count is only a starting hint: the unique index on
// orders.order_number is what actually prevents collisions, callers retry
// with a bumped attempt on conflict.
type OrderNumberSource interface {
	CountByOrderNumberPrefix(ctx context.Context, prefix string) (int64, error)
}

// OrderNumberGenerator produces human-readable order numbers of the form
// PREFIX-YYYY-NNNN.
type OrderNumberGenerator struct {
	prefix string
	source OrderNumberSource
	now    func() time.Time
}

// NewOrderNumberGenerator builds a generator for the given prefix.
func NewOrderNumberGenerator(prefix string, source OrderNumberSource) (*OrderNumberGenerator, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, fmt.Errorf("order number prefix required")
	}
	if source == nil {
		return nil, fmt.Errorf("order number source required")
	}
	return &OrderNumberGenerator{
		prefix: prefix,
		source: source,
		now:    time.Now,
	}, nil
}

// Next returns the candidate number for this attempt. Concurrent callers
// can receive the same candidate; the losing insert sees a unique
// violation and calls Next again with a higher attempt.
func (g *OrderNumberGenerator) Next(ctx context.Context, attempt int) (string, error) {
	yearPrefix := fmt.Sprintf("%s-%d-", g.prefix, g.now().UTC().Year())
	count, err := g.source.CountByOrderNumberPrefix(ctx, yearPrefix)
	if err != nil {
		return "", fmt.Errorf("count order numbers: %w", err)
	}
	return fmt.Sprintf("%s%04d", yearPrefix, count+1+int64(attempt)), nil
}
