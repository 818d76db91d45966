package email

import (
	"fmt"
	"strings"

	"github.com/fblasco1/portfolio-fotografo/internal/models"
)

// OrderConfirmation renders the bilingual confirmation sent when an order
// reaches approved.
func OrderConfirmation(order *models.Order) *Email {
	if order == nil {
		return nil
	}

	var items strings.Builder
	for _, item := range order.Items {
		line := fmt.Sprintf("- %s (%s) x%d", item.Title, item.Size, item.Quantity)
		if item.UnitPrice > 0 {
			line += fmt.Sprintf(": %.2f %s", item.UnitPrice*float64(item.Quantity), item.Currency)
		} else {
			line += ": a cotizar / quote pending"
		}
		items.WriteString(line + "\n")
	}

	text := fmt.Sprintf(`¡Gracias por tu compra! / Thank you for your order!

Pedido / Order: %s
Total: %.2f %s

Detalle / Items:
%s
Te avisaremos cuando el pedido sea despachado.
We will let you know once your order ships.
`, order.ID, order.TotalAmount, order.Currency, items.String())

	return &Email{
		To:      order.CustomerEmail,
		Subject: fmt.Sprintf("Confirmación de pedido / Order confirmation %s", shortID(order)),
		Text:    text,
	}
}

func shortID(order *models.Order) string {
	id := order.ID.String()
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
