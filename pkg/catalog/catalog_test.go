package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestNewRejectsBadEntries(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
	}{
		{"missing id", []Item{{ID: " ", Price: decimal.NewFromInt(1)}}},
		{"duplicate id", []Item{{ID: "A", Price: decimal.NewFromInt(1)}, {ID: "A", Price: decimal.NewFromInt(2)}}},
		{"negative price", []Item{{ID: "A", Price: decimal.NewFromInt(-1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.items)
			assert.Error(t, err)
		})
	}
}

func TestLookupAndGet(t *testing.T) {
	c, err := New([]Item{
		{ID: "A", Name: "Alpha", Code: "ALP", Price: decimal.RequireFromString("9.99")},
		{ID: "B", Name: "Beta", Code: "BET", Price: decimal.RequireFromString("12.50")},
	})
	require.NoError(t, err)

	item, ok := c.Lookup("B")
	require.True(t, ok)
	assert.Equal(t, "Beta", item.Name)

	_, err = c.Get("Z")
	assert.True(t, errors.Is(err, ErrUnknownItem))

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].ID)
	items[0].Name = "mutated"
	again, _ := c.Lookup("A")
	assert.Equal(t, "Alpha", again.Name)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "menu.json", `[
		{"id": 2, "code": "PEPP", "name": "Pepperoni", "price": 21.0},
		{"id": "6", "code": "MARG", "name": "Margherita", "price": "18.50"}
	]`)
	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	pepp, ok := c.Lookup("2")
	require.True(t, ok)
	assert.True(t, pepp.Price.Equal(decimal.NewFromInt(21)))
	marg, ok := c.Lookup("6")
	require.True(t, ok)
	assert.Equal(t, "18.5", marg.Price.String())
}

func TestLoadYAMLKeepsExactPrices(t *testing.T) {
	path := writeFile(t, "menu.yaml", `
- id: A
  name: Alpha
  code: ALP
  price: 0.1
- id: B
  name: Beta
  code: BET
  price: 3.333
- id: C
  name: Garlic Bread
  code: GARL
  price: "6,50"
`)
	c, err := Load(path)
	require.NoError(t, err)
	a, _ := c.Lookup("A")
	assert.Equal(t, "0.1", a.Price.String())
	b, _ := c.Lookup("B")
	assert.Equal(t, "3.333", b.Price.String())
	garl, _ := c.Lookup("C")
	assert.Equal(t, "6.5", garl.Price.String())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := writeFile(t, "bad.json", `[{"id": "A", "price": "abc"}]`)
	_, err = Load(bad)
	assert.Error(t, err)

	blank := writeFile(t, "blank.yaml", "- {id: A, price: \"\"}\n")
	_, err = Load(blank)
	assert.Error(t, err)

	dup := writeFile(t, "dup.yaml", "- {id: A, price: 1}\n- {id: A, price: 2}\n")
	_, err = Load(dup)
	assert.Error(t, err)
}

func TestDefaultMenu(t *testing.T) {
	c := Default()
	assert.Equal(t, 8, c.Len())
	item, ok := c.Lookup("2")
	require.True(t, ok)
	assert.Equal(t, "PEPP", item.Code)
}
