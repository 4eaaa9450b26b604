package domain

// ============================================================
// Categories
// ============================================================

// Reserved category ids. The catalog refuses to load without them.
const (
	CategoryOther    = "other"
	CategoryIncome   = "income"
	CategoryTransfer = "transfer"
)

// Category is an immutable catalog entry used for classification and
// keyword-based auto-suggestion.
type Category struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Color    string   `json:"color" yaml:"color"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// IsReserved reports whether the category is one of the fallback entries
// that never take part in keyword scoring.
func (c Category) IsReserved() bool {
	switch c.ID {
	case CategoryOther, CategoryIncome, CategoryTransfer:
		return true
	}
	return false
}
