package catalog

// Package catalog provides the print price list and cart pricing.

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fblasco1/portfolio-fotografo/internal/models"
)

type Catalog struct {
	Currency string    `yaml:"currency"`
	Products []Product `yaml:"products"`
}

type Product struct {
	ID     string `yaml:"id"`
	Title  string `yaml:"title"`
	Type   string `yaml:"type"`
	Active bool   `yaml:"active"`
	// Prices are base-currency (USD) amounts keyed by print size. A size
	// absent from the map is not sold; custom is never listed here.
	Prices map[string]float64 `yaml:"prices"`
}

func Parse(content []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(content, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	if c.Currency == "" {
		c.Currency = "USD"
	}
	return &c, nil
}

func LoadFile(path string) (*Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(content)
}

func (c *Catalog) Find(productID string) *Product {
	for i := range c.Products {
		if c.Products[i].ID == productID {
			return &c.Products[i]
		}
	}
	return nil
}

func (c *Catalog) Title(productID string) string {
	if product := c.Find(productID); product != nil {
		return product.Title
	}
	return productID
}

// PriceUSD resolves the base price for one unit. Custom-size lines are
// quote-only and unknown products or sizes resolve to 0 so a single
// unpriceable line never blocks the rest of the cart.
func (c *Catalog) PriceUSD(productID string, size models.PrintSize) (amount float64, quoteOnly bool) {
	if size == models.SizeCustom {
		return 0, true
	}
	product := c.Find(productID)
	if product == nil || !product.Active {
		return 0, false
	}
	price, ok := product.Prices[string(size)]
	if !ok || price < 0 {
		return 0, false
	}
	return price, false
}
