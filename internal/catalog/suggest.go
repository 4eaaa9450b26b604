package catalog

import (
	"strings"

	"github.com/cedisense/cedisense-bfa/internal/domain"
)

// transferPatterns mark a description as money moving between wallets. Credits
// check them first; debits only when no spending keyword matched.
var transferPatterns = []string{"transfer", "sent to", "send to", "instant pay", "received from"}

// Suggest picks a category for a free-text description. It is deterministic
// and performs no I/O.
//
// Credits short-circuit to transfer or income. Debits are scored per
// category as the summed length of every keyword found in the description,
// so specific keywords outweigh generic ones; the first category to reach
// the top score wins.
func (c *Catalog) Suggest(description string, dir domain.Direction) domain.Category {
	desc := strings.ToLower(description)

	if dir.IsCredit() {
		if containsAny(desc, transferPatterns) {
			transfer, _ := c.ByID(domain.CategoryTransfer)
			return transfer
		}
		income, _ := c.ByID(domain.CategoryIncome)
		return income
	}

	var best domain.Category
	bestScore := 0
	for _, cat := range c.categories {
		if cat.IsReserved() {
			continue
		}
		if score := keywordScore(desc, cat.Keywords); score > bestScore {
			best, bestScore = cat, score
		}
	}
	if bestScore > 0 {
		return best
	}

	if containsAny(desc, transferPatterns) {
		transfer, _ := c.ByID(domain.CategoryTransfer)
		return transfer
	}
	return c.DefaultCategory()
}

// SuggestID is Suggest for callers that only persist the id.
func (c *Catalog) SuggestID(description string, dir domain.Direction) string {
	return c.Suggest(description, dir).ID
}

func keywordScore(desc string, keywords []string) int {
	score := 0
	for _, k := range keywords {
		if strings.Contains(desc, k) {
			score += len(k)
		}
	}
	return score
}

func containsAny(desc string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(desc, n) {
			return true
		}
	}
	return false
}
