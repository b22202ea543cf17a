package retrieval

import "time"

// Age band boundaries for recency stratification.
const (
	recentBandMaxAge = 7 * 24 * time.Hour
	mediumBandMaxAge = 30 * 24 * time.Hour
)

// stratifyByRecency re-balances a ranked list so recent (≤7d), medium (≤30d)
// and older content are proportionally represented: up to 50% recent, 30%
// medium, with older items filling the remainder. Each band keeps its existing
// score order. The output is never larger than the input and contains only
// input items.
func stratifyByRecency(items []RetrievedItem, now time.Time) []RetrievedItem {
	n := len(items)
	if n == 0 {
		return items
	}

	var recent, medium, older []RetrievedItem
	for _, item := range items {
		age := now.Sub(item.CreatedAt)
		switch {
		case age <= recentBandMaxAge:
			recent = append(recent, item)
		case age <= mediumBandMaxAge:
			medium = append(medium, item)
		default:
			older = append(older, item)
		}
	}

	recentTake := min(len(recent), n/2)
	mediumTake := min(len(medium), n*3/10)
	olderTake := min(len(older), n-recentTake-mediumTake)

	out := make([]RetrievedItem, 0, recentTake+mediumTake+olderTake)
	out = append(out, recent[:recentTake]...)
	out = append(out, medium[:mediumTake]...)
	out = append(out, older[:olderTake]...)
	return out
}
