package catalog_test

import (
	"testing"

	"github.com/cedisense/cedisense-bfa/internal/catalog"
	"github.com/cedisense/cedisense-bfa/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestSuggest_IncomeShortCircuit(t *testing.T) {
	c := catalog.Default()

	assert.Equal(t, domain.CategoryIncome, c.Suggest("Salary payment", domain.DirectionCredit).ID)
	assert.Equal(t, domain.CategoryTransfer, c.Suggest("Transfer received from John", domain.DirectionCredit).ID)
	// Credits never fall into spending categories.
	assert.Equal(t, domain.CategoryIncome, c.Suggest("KFC refund", domain.ParseDirection("income")).ID)
}

func TestSuggest_CreditUsesTransferPatterns(t *testing.T) {
	// The catalog's transfer entry lists neither phrase.
	c := fixture(t)

	assert.Equal(t, domain.CategoryTransfer, c.Suggest("Money sent to savings", domain.DirectionCredit).ID)
	assert.Equal(t, domain.CategoryTransfer, c.Suggest("Instant Pay 0244", domain.DirectionCredit).ID)
	assert.Equal(t, domain.CategoryTransfer, c.Suggest("Money sent to savings", domain.DirectionDebit).ID)
	assert.Equal(t, domain.CategoryIncome, c.Suggest("Salary October", domain.DirectionCredit).ID)
}

func TestSuggest_HigherScoreWinsOverDeclarationOrder(t *testing.T) {
	c := fixture(t,
		domain.Category{ID: "transport", Name: "Transport", Keywords: []string{"fuel"}},
		domain.Category{ID: "shopping", Name: "Shopping", Keywords: []string{"market", "groceries"}},
	)

	// transport scores 4, shopping scores 9.
	got := c.Suggest("fuel and groceries", domain.DirectionDebit)
	assert.Equal(t, "shopping", got.ID)

	// Only transport matches.
	got = c.Suggest("fuel and bread", domain.DirectionDebit)
	assert.Equal(t, "transport", got.ID)
}

func TestSuggest_SummedKeywordLengths(t *testing.T) {
	c := fixture(t,
		domain.Category{ID: "a", Name: "A", Keywords: []string{"abcdefgh"}},
		domain.Category{ID: "b", Name: "B", Keywords: []string{"abc", "xyz", "pq"}},
	)

	// a: 8; b: 3+3+2 = 8 -> tie, first declared wins.
	assert.Equal(t, "a", c.Suggest("abcdefgh xyz pq", domain.DirectionDebit).ID)
	// a: 0; b: 3+3 = 6.
	assert.Equal(t, "b", c.Suggest("abc xyz", domain.DirectionDebit).ID)
}

func TestSuggest_TieKeepsFirstDeclared(t *testing.T) {
	c := fixture(t,
		domain.Category{ID: "first", Name: "First", Keywords: []string{"shop"}},
		domain.Category{ID: "second", Name: "Second", Keywords: []string{"shop"}},
	)

	assert.Equal(t, "first", c.Suggest("corner shop", domain.DirectionDebit).ID)
}

func TestSuggest_TransferFallbackAndDefault(t *testing.T) {
	c := catalog.Default()

	assert.Equal(t, domain.CategoryTransfer, c.Suggest("Money sent to Ama", domain.DirectionDebit).ID)
	assert.Equal(t, domain.CategoryTransfer, c.Suggest("INSTANT PAY: 0244", domain.DirectionDebit).ID)
	assert.Equal(t, domain.CategoryOther, c.Suggest("", domain.DirectionDebit).ID)
	assert.Equal(t, domain.CategoryOther, c.Suggest("zzzz", domain.DirectionUnknown).ID)
}

func TestSuggest_KeywordsBeatTransferPattern(t *testing.T) {
	c := catalog.Default()

	got := c.Suggest("Transfer to ECG prepaid", domain.DirectionDebit)
	assert.Equal(t, "bills", got.ID)
}

func TestSuggest_Deterministic(t *testing.T) {
	c := catalog.Default()
	first := c.SuggestID("Lunch at KFC Osu", domain.DirectionDebit)

	for i := 0; i < 50; i++ {
		assert.Equal(t, first, c.SuggestID("Lunch at KFC Osu", domain.DirectionDebit))
	}
	assert.Equal(t, "food", first)
}
