package catalog

import (
	"fmt"

	"github.com/sadopc/somnus/internal/analytics"
)

type Product struct {
	ID          string
	Name        string
	Description string
	Benefits    []string
	Ingredients []string
	Price       int // KRW per month
	Category    analytics.Category
}

var products = []Product{
	{
		ID:          "1",
		Name:        "Somnus Deep Sleep Jelly",
		Description: "L-theanine and tart cherry, combined to help you reach deep sleep sooner.",
		Benefits:    []string{"Shorter sleep onset", "Supports the REM cycle", "Melatonin free"},
		Ingredients: []string{"L-theanine", "Tart cherry", "Magnesium"},
		Price:       24000,
		Category:    analytics.DeepSleep,
	},
	{
		ID:          "2",
		Name:        "Nightly Calm Tea Extract",
		Description: "A concentrated chamomile and valerian root extract that calms body and mind.",
		Benefits:    []string{"Stress relief", "Releases muscle tension", "Calms the mind"},
		Ingredients: []string{"Chamomile", "Valerian root", "Lavender"},
		Price:       18000,
		Category:    analytics.FastSleep,
	},
	{
		ID:          "3",
		Name:        "Recovery Mineral Gummies",
		Description: "Zinc and magnesium support recovery while you sleep, for a fresher morning.",
		Benefits:    []string{"Physical recovery", "Hormone balance", "Refreshed waking"},
		Ingredients: []string{"Magnesium glycinate", "Zinc", "Vitamin B6"},
		Price:       21000,
		Category:    analytics.Recovery,
	},
}

// All returns the catalog in display order.
func All() []Product {
	out := make([]Product, len(products))
	copy(out, products)
	return out
}

// ForCategory returns the product recommended for c.
func ForCategory(c analytics.Category) (Product, bool) {
	for _, p := range products {
		if p.Category == c {
			return p, true
		}
	}
	return Product{}, false
}

// ByID looks up a product, as stored in the selected_plan setting.
func ByID(id string) (Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// FormatPrice renders a price as "24,000 KRW".
func FormatPrice(krw int) string {
	s := fmt.Sprintf("%d", krw)
	var out []byte
	for i := range len(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	return string(out) + " KRW"
}
