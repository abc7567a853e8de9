package cart

import (
	"sort"

	"github.com/google/uuid"

	"github.com/nandazuhri/lokapasar-backend/pkg/db/models"
)

// StoreGroup is the subset of a cart's selected items belonging to one seller,
// the unit of shipping selection and order creation.
type StoreGroup struct {
	StoreID       uuid.UUID
	Items         []models.CartItem
	SubtotalMinor int64
	WeightGrams   int
	ItemCount     int
}

// GroupSelected partitions the selected cart items by store, computing
// per-group subtotal, weight, and item count. Groups come back in ascending
// store-id order so every caller walks them deterministically. An empty
// result means nothing is selected, not an error.
func GroupSelected(items []models.CartItem) []StoreGroup {
	byStore := map[uuid.UUID]*StoreGroup{}
	for _, item := range items {
		if !item.IsSelected {
			continue
		}
		group, ok := byStore[item.StoreID]
		if !ok {
			group = &StoreGroup{StoreID: item.StoreID}
			byStore[item.StoreID] = group
		}
		group.Items = append(group.Items, item)
		group.SubtotalMinor += item.UnitPriceMinor * int64(item.Quantity)
		if item.Product != nil {
			group.WeightGrams += item.Product.WeightGrams * item.Quantity
		}
		group.ItemCount += item.Quantity
	}

	groups := make([]StoreGroup, 0, len(byStore))
	for _, group := range byStore {
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].StoreID.String() < groups[j].StoreID.String()
	})
	return groups
}
