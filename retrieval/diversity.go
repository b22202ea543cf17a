package retrieval

import "sort"

// selectDiverse caps the list so no single source type crowds out the others.
// Memories and messages each get up to ceil(0.4*maxItems); documents get the
// residual. An empty type's unused quota is not redistributed to the other
// types, so the result can be smaller than maxItems even when more candidates
// exist. The merged result is re-sorted by score descending and truncated to
// maxItems.
func selectDiverse(items []RetrievedItem, maxItems int) []RetrievedItem {
	if maxItems <= 0 || len(items) == 0 {
		return nil
	}

	var memories, messages, documents []RetrievedItem
	for _, item := range items {
		switch item.Type {
		case ItemTypeMemory:
			memories = append(memories, item)
		case ItemTypeMessage:
			messages = append(messages, item)
		case ItemTypeDocument:
			documents = append(documents, item)
		}
	}

	typeQuota := (4*maxItems + 9) / 10 // ceil(0.4 * maxItems)
	memoryQuota := min(len(memories), typeQuota)
	messageQuota := min(len(messages), typeQuota)
	documentQuota := maxItems - memoryQuota - messageQuota
	if documentQuota < 0 {
		documentQuota = 0
	}
	documentQuota = min(len(documents), documentQuota)

	selected := make([]RetrievedItem, 0, memoryQuota+messageQuota+documentQuota)
	selected = append(selected, memories[:memoryQuota]...)
	selected = append(selected, messages[:messageQuota]...)
	selected = append(selected, documents[:documentQuota]...)

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Score > selected[j].Score
	})
	if len(selected) > maxItems {
		selected = selected[:maxItems]
	}
	return selected
}
