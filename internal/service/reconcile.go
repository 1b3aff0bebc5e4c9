package service

import "order_syncer/internal/domain"

// dedupeOrders collapses duplicate natural keys within one batch, as
// happens with pagination overlap or overlapping filter queries. The
// record with the latest channel-reported UpdatedAt wins; on equal or
// absent timestamps the later-encountered record wins. Batch order of the
// surviving records is preserved.
func dedupeOrders(batch []domain.Order) []domain.Order {
	out := make([]domain.Order, 0, len(batch))
	index := make(map[string]int, len(batch))

	for _, o := range batch {
		at, seen := index[o.ExternalID]
		if !seen {
			index[o.ExternalID] = len(out)
			out = append(out, o)
			continue
		}
		if !o.UpdatedAt.Before(out[at].UpdatedAt) {
			out[at] = o
		}
	}
	return out
}

// staleItemKeys computes, per order touched by this run, the stored item
// keys the channel no longer reports. Scoped strictly to the orders in the
// batch so items of untouched orders survive.
func staleItemKeys(stored map[string][]string, batch []domain.Order) map[string][]string {
	stale := make(map[string][]string)

	for _, o := range batch {
		keys, ok := stored[o.ExternalID]
		if !ok {
			continue
		}

		current := make(map[string]struct{}, len(o.Items))
		for _, item := range o.Items {
			current[item.ItemKey] = struct{}{}
		}

		for _, key := range keys {
			if _, reported := current[key]; !reported {
				stale[o.ExternalID] = append(stale[o.ExternalID], key)
			}
		}
	}
	return stale
}
