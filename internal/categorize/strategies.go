package categorize

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fedhatrac/categorizer/internal/core/config"
	"github.com/fedhatrac/categorizer/internal/core/domain"
)

// Strategy produces a category name for a transaction, or "" when it has
// no opinion. Strategies are pure with respect to their inputs and must
// tolerate a nil date.
type Strategy interface {
	Name() string
	Categorize(ctx context.Context, narration string, amount int64, date *time.Time) string
}

// KeywordStrategy matches configured keywords against the narration,
// case-insensitively. Rules are evaluated in list order; the first
// category with a matching keyword wins.
type KeywordStrategy struct {
	rules []config.KeywordRule
}

func NewKeywordStrategy(rules []config.KeywordRule) *KeywordStrategy {
	return &KeywordStrategy{rules: rules}
}

func (s *KeywordStrategy) Name() string { return "keyword" }

func (s *KeywordStrategy) Categorize(ctx context.Context, narration string, amount int64, date *time.Time) string {
	lowered := strings.ToLower(narration)
	for _, rule := range s.rules {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
				return rule.Category
			}
		}
	}
	return ""
}

// MerchantStrategy matches configured merchant tokens against the
// narration, case-insensitively, in list order.
type MerchantStrategy struct {
	rules []config.MerchantRule
}

func NewMerchantStrategy(rules []config.MerchantRule) *MerchantStrategy {
	return &MerchantStrategy{rules: rules}
}

func (s *MerchantStrategy) Name() string { return "merchant" }

func (s *MerchantStrategy) Categorize(ctx context.Context, narration string, amount int64, date *time.Time) string {
	uppered := strings.ToUpper(narration)
	for _, rule := range s.rules {
		if strings.Contains(uppered, strings.ToUpper(rule.Token)) {
			return rule.Category
		}
	}
	return ""
}

// Amount thresholds in minor currency units.
const (
	largeExpenseAmount = 500_000 // 5000.00
	smallExpenseAmount = 1_000   // 10.00
)

// AmountStrategy buckets by transaction size.
type AmountStrategy struct{}

func (AmountStrategy) Name() string { return "amount" }

func (AmountStrategy) Categorize(ctx context.Context, narration string, amount int64, date *time.Time) string {
	switch {
	case amount > largeExpenseAmount:
		return "large_expenses"
	case amount < smallExpenseAmount:
		return "small_expenses"
	default:
		return ""
	}
}

// DateStrategy buckets by season and weekday.
type DateStrategy struct{}

func (DateStrategy) Name() string { return "date" }

func (DateStrategy) Categorize(ctx context.Context, narration string, amount int64, date *time.Time) string {
	if date == nil {
		return ""
	}
	if date.Month() == time.December || date.Month() == time.January {
		return "holiday_expenses"
	}
	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return "weekend_expenses"
	}
	return ""
}

// CategoryResolver resolves a category id to its row; the ML strategy uses
// it to turn the classifier's prediction into a name.
type CategoryResolver interface {
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
}

// MLStrategy delegates to the swappable classifier. Any failure, including
// an unresolvable predicted id or no installed classifier, yields "" so the
// dispatcher can fall through.
type MLStrategy struct {
	holder   *Holder
	resolver CategoryResolver
	log      *slog.Logger
}

func NewMLStrategy(holder *Holder, resolver CategoryResolver) *MLStrategy {
	return &MLStrategy{
		holder:   holder,
		resolver: resolver,
		log:      slog.Default().With("component", "ml_strategy"),
	}
}

func (s *MLStrategy) Name() string { return "ml" }

func (s *MLStrategy) Categorize(ctx context.Context, narration string, amount int64, date *time.Time) string {
	classifier := s.holder.Load()
	if classifier == nil {
		return ""
	}

	categoryID, err := classifier.Classify(ctx, narration, amount)
	if err != nil {
		s.log.Warn("Classifier failed", "error", err)
		return ""
	}

	cat, err := s.resolver.GetByID(ctx, categoryID)
	if err != nil {
		s.log.Warn("Failed to resolve predicted category", "category_id", categoryID, "error", err)
		return ""
	}
	if cat == nil {
		s.log.Warn("Classifier predicted unknown category id", "category_id", categoryID)
		return ""
	}
	return cat.Name
}
