package categorize

import (
	"context"
	"sync/atomic"
)

// Classifier is the external ML capability. Implementations classify a
// transaction into a category id from its narration and amount.
type Classifier interface {
	Classify(ctx context.Context, narration string, amount int64) (int64, error)
}

// Holder is an atomically swappable classifier reference. Model refresh
// installs a new classifier without stopping readers; a concurrent Classify
// sees either the old or the new classifier, never a partial one.
type Holder struct {
	ptr atomic.Pointer[classifierBox]
}

type classifierBox struct {
	classifier Classifier
}

// NewHolder creates a holder. The initial classifier may be nil, in which
// case the ML strategy stays inert until the first refresh.
func NewHolder(c Classifier) *Holder {
	h := &Holder{}
	h.ptr.Store(&classifierBox{classifier: c})
	return h
}

// Load returns the current classifier, or nil if none is installed.
func (h *Holder) Load() Classifier {
	return h.ptr.Load().classifier
}

// Swap installs a new classifier.
func (h *Holder) Swap(c Classifier) {
	h.ptr.Store(&classifierBox{classifier: c})
}
