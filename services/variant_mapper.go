package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yashrajoria/catalog-import/providers"
)

// VariantFields are the product columns derived from Shopify variants.
type VariantFields struct {
	Price           decimal.Decimal
	ComparePrice    decimal.NullDecimal
	StockQuantity   int
	ManageStock     bool
	AllowBackorders bool
	InventoryPolicy string
	Weight          decimal.NullDecimal
	WeightUnit      string
	Barcode         string
	Options         [3]string
}

// VariantMapper turns a Shopify product's variants into local product fields.
type VariantMapper interface {
	Map(product providers.ShopifyProduct) (VariantFields, error)
}

// FirstVariantMapper maps a product onto a single-price product using its
// first variant only; further variants are ignored.
type FirstVariantMapper struct{}

func (FirstVariantMapper) Map(p providers.ShopifyProduct) (VariantFields, error) {
	var f VariantFields
	if len(p.Variants) == 0 {
		return f, nil
	}
	v := p.Variants[0]

	price, err := parseMoney(v.Price)
	if err != nil {
		return f, fmt.Errorf("variant %d price: %w", v.ID, err)
	}
	f.Price = price

	if v.CompareAtPrice != nil && strings.TrimSpace(*v.CompareAtPrice) != "" {
		cmp, err := parseMoney(*v.CompareAtPrice)
		if err != nil {
			return f, fmt.Errorf("variant %d compare_at_price: %w", v.ID, err)
		}
		f.ComparePrice = decimal.NewNullDecimal(cmp)
	}

	f.StockQuantity = v.InventoryQuantity
	f.ManageStock = v.InventoryManagement != nil && *v.InventoryManagement != ""
	f.InventoryPolicy = v.InventoryPolicy
	f.AllowBackorders = v.InventoryPolicy == "continue"

	if v.Weight > 0 {
		f.Weight = decimal.NewNullDecimal(decimal.NewFromFloat(v.Weight))
		f.WeightUnit = v.WeightUnit
	}
	if v.Barcode != nil {
		f.Barcode = *v.Barcode
	}
	for i, opt := range []*string{v.Option1, v.Option2, v.Option3} {
		if opt != nil {
			f.Options[i] = *opt
		}
	}
	return f, nil
}

func parseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
