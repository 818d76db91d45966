package models

// PrintSize is the physical size of an ordered print.
type PrintSize string

const (
	SizeSmall  PrintSize = "small"
	SizeMedium PrintSize = "medium"
	SizeLarge  PrintSize = "large"
	// SizeCustom carries no fixed price; lines with it are quoted manually.
	SizeCustom PrintSize = "custom"
)

func (s PrintSize) Valid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge, SizeCustom:
		return true
	}
	return false
}

// CartItem identity is (ProductID, Size): the same photograph in two sizes
// is two distinct cart lines.
type CartItem struct {
	ProductID   string    `json:"product_id" validate:"required"`
	Title       string    `json:"title,omitempty"`
	Size        PrintSize `json:"size" validate:"required"`
	Quantity    int       `json:"quantity" validate:"min=1"`
	ProductType string    `json:"product_type,omitempty"`
}

func (c CartItem) Key() string {
	return c.ProductID + "/" + string(c.Size)
}
