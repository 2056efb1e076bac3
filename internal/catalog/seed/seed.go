// Package seed generates a deterministic demo saree catalog and loads it
// through a catalog.Repository.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/vegasarees/storefront/internal/catalog"
)

// Filter vocabularies offered by the storefront's filter drawer.
var (
	Sizes     = []string{"S", "M", "L", "XL"}
	Fabrics   = []string{"Cotton", "Silk", "Viscose"}
	Colours   = []string{"Black", "Blue", "Orange"}
	Occasions = []string{"Casual", "Office", "Festive"}
)

var (
	prefixes = []string{
		"Handwoven", "Zari Border", "Block Printed", "Embroidered", "Temple Border",
		"Floral", "Checked", "Sequinned", "Pure", "Soft",
	}
	styles = map[string][]string{
		"Cotton":  {"Chanderi", "Jamdani", "Tant", "Mangalagiri"},
		"Silk":    {"Banarasi", "Kanjivaram", "Paithani", "Mysore Silk"},
		"Viscose": {"Georgette", "Chiffon", "Crepe", "Organza"},
	}
	tags = []string{"New Arrival", "Bestseller", "Wedding", "Everyday", ""}

	descriptions = []string{
		"<p>A %s saree with matching blouse piece. Dry clean recommended.</p>",
		"<p>Lightweight %s drape for all-day comfort.</p>",
		"<p>Our %s is finished by hand and ships with a fall and pico.</p>",
	}
)

// Generate returns n products. The same seed always yields the same catalog.
// Prices run from 800 to 60000 in steps of 50; about a third of the
// products carry a discount with the matching old price.
func Generate(n int, seed uint64, now time.Time) []catalog.Product {
	rng := rand.New(rand.NewPCG(seed, seed^0x5eed))

	products := make([]catalog.Product, 0, n)
	for i := range n {
		fabric := Fabrics[i%len(Fabrics)]
		colour := Colours[rng.IntN(len(Colours))]
		style := styles[fabric][rng.IntN(len(styles[fabric]))]
		name := fmt.Sprintf("%s %s Saree - %s", prefixes[rng.IntN(len(prefixes))], style, colour)

		price := float64(800 + rng.IntN(1185)*50)
		p := catalog.Product{
			Name:        name,
			Price:       price,
			Size:        Sizes[rng.IntN(len(Sizes))],
			Fabric:      fabric,
			Colour:      colour,
			Occasion:    Occasions[rng.IntN(len(Occasions))],
			Tag:         tags[rng.IntN(len(tags))],
			Description: fmt.Sprintf(descriptions[rng.IntN(len(descriptions))], style),
			Images: []string{
				fmt.Sprintf("https://cdn.vegasarees.in/products/%04d-front.jpg", i+1),
				fmt.Sprintf("https://cdn.vegasarees.in/products/%04d-drape.jpg", i+1),
			},
			CreatedAt: now.Add(-time.Duration(rng.IntN(90*24)) * time.Hour),
		}
		if rng.IntN(3) == 0 {
			discount := float64(10 + rng.IntN(5)*10)
			old := math.Round(price / (1 - discount/100))
			p.Discount = discount
			p.OldPrice = &old
		}
		products = append(products, p)
	}
	return products
}

// Load creates products through repo, emptying the catalog first when reset
// is set. It stops at the first failed write and reports how many products
// were created.
func Load(ctx context.Context, repo catalog.Repository, products []catalog.Product, reset bool, logger *slog.Logger) (int, error) {
	if reset {
		if err := repo.Reset(ctx); err != nil {
			return 0, fmt.Errorf("reset catalog: %w", err)
		}
		logger.InfoContext(ctx, "catalog reset")
	}

	for i := range products {
		if err := repo.Create(ctx, &products[i]); err != nil {
			return i, fmt.Errorf("create product %q: %w", products[i].Name, err)
		}
		if (i+1)%100 == 0 {
			logger.InfoContext(ctx, "seeding progress", slog.Int("created", i+1), slog.Int("total", len(products)))
		}
	}
	return len(products), nil
}
