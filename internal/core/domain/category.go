package domain

// Category is a spending category. Read-only from the pipeline's point
// of view; rows are managed elsewhere.
type Category struct {
	ID     int64
	Name   string
	Active bool
}

// UnknownCategory is the fallback name the dispatcher returns when no
// strategy produces a category.
const UnknownCategory = "unknown"
