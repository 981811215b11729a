package categorize

import (
	"context"
	"time"

	"github.com/fedhatrac/categorizer/internal/core/config"
	"github.com/fedhatrac/categorizer/internal/core/domain"
	"github.com/fedhatrac/categorizer/internal/pipeline/metrics"
)

// Dispatcher evaluates an ordered chain of strategies; the first strategy
// producing a non-empty name wins. The built-in order is keyword, merchant,
// then the optional amount/date rules, then ML.
type Dispatcher struct {
	strategies []Strategy
}

// Options controls which optional strategies are appended.
type Options struct {
	AmountRules bool
	DateRules   bool
	ML          bool
}

// NewDispatcher builds the strategy chain from configured rules. holder and
// resolver are only consulted when opts.ML is set.
func NewDispatcher(rules config.RulesConfig, opts Options, holder *Holder, resolver CategoryResolver) *Dispatcher {
	strategies := []Strategy{
		NewKeywordStrategy(rules.Keywords),
		NewMerchantStrategy(rules.Merchants),
	}
	if opts.AmountRules {
		strategies = append(strategies, AmountStrategy{})
	}
	if opts.DateRules {
		strategies = append(strategies, DateStrategy{})
	}
	if opts.ML {
		strategies = append(strategies, NewMLStrategy(holder, resolver))
	}
	return &Dispatcher{strategies: strategies}
}

// Categorize returns the first strategy's non-empty category name, or
// domain.UnknownCategory when nothing matches.
func (d *Dispatcher) Categorize(ctx context.Context, narration string, amount int64, date *time.Time) string {
	for _, s := range d.strategies {
		if name := s.Categorize(ctx, narration, amount, date); name != "" {
			metrics.StrategyHits.WithLabelValues(s.Name()).Inc()
			return name
		}
	}
	metrics.StrategyHits.WithLabelValues("fallback").Inc()
	return domain.UnknownCategory
}
