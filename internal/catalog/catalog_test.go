package catalog_test

import (
	"strings"
	"testing"

	"github.com/cedisense/cedisense-bfa/internal/catalog"
	"github.com/cedisense/cedisense-bfa/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T, extra ...domain.Category) *catalog.Catalog {
	t.Helper()
	cats := append(extra,
		domain.Category{ID: domain.CategoryIncome, Name: "Income"},
		domain.Category{ID: domain.CategoryTransfer, Name: "Transfer", Keywords: []string{"transfer", "received from"}},
		domain.Category{ID: domain.CategoryOther, Name: "Other"},
	)
	c, err := catalog.New(cats)
	require.NoError(t, err)
	return c
}

func TestDefault_HasReservedEntries(t *testing.T) {
	c := catalog.Default()

	for _, id := range []string{domain.CategoryOther, domain.CategoryIncome, domain.CategoryTransfer} {
		_, ok := c.ByID(id)
		assert.True(t, ok, "reserved category %q missing", id)
	}
	assert.Equal(t, domain.CategoryOther, c.DefaultCategory().ID)
}

func TestNew_RejectsMissingReserved(t *testing.T) {
	_, err := catalog.New([]domain.Category{{ID: "food", Name: "Food"}})

	var verr *domain.ErrValidation
	require.ErrorAs(t, err, &verr)
}

func TestNew_RejectsDuplicateID(t *testing.T) {
	_, err := catalog.New([]domain.Category{
		{ID: "food", Name: "Food"},
		{ID: "food", Name: "Groceries"},
		{ID: domain.CategoryOther}, {ID: domain.CategoryIncome}, {ID: domain.CategoryTransfer},
	})
	require.Error(t, err)
}

func TestLoad_LowercasesKeywords(t *testing.T) {
	doc := `
categories:
  - {id: food, name: Food, keywords: [" KFC ", Pizza]}
  - {id: other, name: Other}
  - {id: income, name: Income}
  - {id: transfer, name: Transfer}
`
	c, err := catalog.Load(strings.NewReader(doc))
	require.NoError(t, err)

	food, ok := c.ByID("food")
	require.True(t, ok)
	assert.Equal(t, []string{"kfc", "pizza"}, food.Keywords)
}

func TestLookups(t *testing.T) {
	c := catalog.Default()

	cat, ok := c.ByName("food & dining")
	require.True(t, ok)
	assert.Equal(t, "food", cat.ID)

	_, ok = c.ByName("food")
	assert.False(t, ok, "name lookup must not match ids")

	cat, ok = c.ByIDOrName("transport")
	require.True(t, ok)
	assert.Equal(t, "Transport", cat.Name)

	cat, ok = c.ByIDOrName("Bills & Utilities")
	require.True(t, ok)
	assert.Equal(t, "bills", cat.ID)

	_, ok = c.ByIDOrName("")
	assert.False(t, ok)

	_, ok = c.ByIDOrName("does-not-exist")
	assert.False(t, ok)
}

func TestByIDOrName_PrefersID(t *testing.T) {
	// A category whose display name equals another category's id.
	c := fixture(t,
		domain.Category{ID: "food", Name: "Food"},
		domain.Category{ID: "snacks", Name: "food"},
	)

	cat, ok := c.ByIDOrName("food")
	require.True(t, ok)
	assert.Equal(t, "food", cat.ID)
}

func TestAll_IsACopy(t *testing.T) {
	c := catalog.Default()
	all := c.All()
	all[0].ID = "mutated"

	assert.NotEqual(t, "mutated", c.All()[0].ID)
}
