package catalog

import (
	"github.com/fblasco1/portfolio-fotografo/internal/models"
)

type Pricer struct {
	catalog *Catalog
}

func NewPricer(catalog *Catalog) *Pricer {
	return &Pricer{catalog: catalog}
}

// QuotedLine is a priced cart line. Amounts stay in the base currency;
// display conversion happens at the edge.
type QuotedLine struct {
	Item      models.CartItem `json:"item"`
	Title     string          `json:"title"`
	UnitUSD   float64         `json:"unit_usd"`
	TotalUSD  float64         `json:"total_usd"`
	QuoteOnly bool            `json:"quote_only"`
}

// QuoteCart prices every line. Custom-size lines come back as quote-only
// with zero amounts; they never stop the other lines from pricing.
func (p *Pricer) QuoteCart(items []models.CartItem) (lines []QuotedLine, totalUSD float64) {
	lines = make([]QuotedLine, 0, len(items))
	for _, item := range items {
		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		unit, quoteOnly := p.catalog.PriceUSD(item.ProductID, item.Size)
		line := QuotedLine{
			Item:      item,
			Title:     p.catalog.Title(item.ProductID),
			UnitUSD:   unit,
			QuoteOnly: quoteOnly,
		}
		if !quoteOnly {
			line.TotalUSD = unit * float64(quantity)
			totalUSD += line.TotalUSD
		}
		lines = append(lines, line)
	}
	return lines, totalUSD
}

// OrderItems materializes cart lines into the persisted item shape. Prices
// are always resolved to a non-negative number; quote-only and unknown
// lines are recorded at 0, never omitted.
func (p *Pricer) OrderItems(items []models.CartItem, currency string) []models.OrderItem {
	lines, _ := p.QuoteCart(items)
	orderItems := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		quantity := line.Item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		orderItems = append(orderItems, models.OrderItem{
			ProductID: line.Item.ProductID,
			Title:     line.Title,
			Size:      string(line.Item.Size),
			Quantity:  quantity,
			UnitPrice: line.UnitUSD,
			Currency:  currency,
		})
	}
	return orderItems
}
