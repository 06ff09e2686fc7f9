package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"pizzapos/pkg/money"
)

// scalar keeps the literal text of a JSON or YAML value so ids and prices
// never pass through float64.
type scalar string

// UnmarshalJSON keeps numbers as their literal text.
func (s *scalar) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if strings.HasPrefix(raw, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = scalar(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("expected string or number, got %s", raw)
	}
	*s = scalar(num.String())
	return nil
}

func (s *scalar) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar value", node.Line)
	}
	*s = scalar(node.Value)
	return nil
}

type menuEntry struct {
	ID    scalar `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Code  string `json:"code" yaml:"code"`
	Price scalar `json:"price" yaml:"price"`
}

// Load reads a menu file. Files ending in .json are decoded as JSON, anything
// else as YAML. The document is a list of {id, name, code, price} entries.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read menu: %w", err)
	}
	var entries []menuEntry
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &entries)
	} else {
		err = yaml.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("decode menu %s: %w", path, err)
	}
	return fromEntries(entries)
}

func fromEntries(entries []menuEntry) (*Catalog, error) {
	items := make([]Item, 0, len(entries))
	for i, e := range entries {
		price, err := money.Parse(string(e.Price))
		if err != nil {
			return nil, fmt.Errorf("menu entry %d (%s): invalid price %q", i, e.ID, e.Price)
		}
		items = append(items, Item{
			ID:    string(e.ID),
			Name:  e.Name,
			Code:  e.Code,
			Price: price,
		})
	}
	return New(items)
}
