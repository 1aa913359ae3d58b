package view

import (
	"cmp"
	"slices"
	"strings"

	"foodshare/pkg/types"
)

const FeaturedLimit = 6

// FilterFoods keeps the foods whose name, donator name or pickup location
// contains q, ignoring case. A blank q returns foods unchanged.
func FilterFoods(foods []*types.Food, q string) []*types.Food {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return foods
	}

	out := make([]*types.Food, 0, len(foods))
	for _, f := range foods {
		if f == nil {
			continue
		}
		if strings.Contains(strings.ToLower(f.Name), q) ||
			strings.Contains(strings.ToLower(f.Donator.Name), q) ||
			strings.Contains(strings.ToLower(f.PickupLocation), q) {
			out = append(out, f)
		}
	}
	return out
}

// Featured returns at most FeaturedLimit foods, largest quantity first. Ties
// keep their input order. The input slice is not modified.
func Featured(foods []*types.Food) []*types.Food {
	sorted := slices.Clone(foods)
	slices.SortStableFunc(sorted, func(a, b *types.Food) int {
		return cmp.Compare(quantity(b), quantity(a))
	})
	if len(sorted) > FeaturedLimit {
		sorted = sorted[:FeaturedLimit]
	}
	return sorted
}

func quantity(f *types.Food) int {
	if f == nil {
		return 0
	}
	return f.QuantityNumber
}
