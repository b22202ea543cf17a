package retrieval

// assembleContext walks the diversified, score-sorted list and accepts items
// while the running token total stays within the budget. The walk is strictly
// prefix-greedy: it stops at the first item that would overflow and never
// backtracks to fit smaller items later in the list.
func assembleContext(items []RetrievedItem, tokenBudget int) AssembledContext {
	assembled := AssembledContext{Items: []ContextItem{}}

	var scoreSum float64
	var timeRange *TimeRange

	for i := range items {
		item := &items[i]
		if assembled.TotalTokens+item.EstimatedTokens > tokenBudget {
			break
		}

		assembled.Items = append(assembled.Items, ContextItem{
			Content:   item.Content,
			Type:      item.Type,
			Score:     item.Score,
			Timestamp: item.CreatedAt,
			Metadata:  item.metadataMap(),
			Tokens:    item.EstimatedTokens,
		})
		assembled.TotalTokens += item.EstimatedTokens
		scoreSum += item.Score

		switch item.Type {
		case ItemTypeMemory:
			assembled.Summary.MemoriesCount++
		case ItemTypeMessage:
			assembled.Summary.MessagesCount++
		case ItemTypeDocument:
			assembled.Summary.DocumentsCount++
		}

		if timeRange == nil {
			timeRange = &TimeRange{Start: item.CreatedAt, End: item.CreatedAt}
		} else {
			if item.CreatedAt.Before(timeRange.Start) {
				timeRange.Start = item.CreatedAt
			}
			if item.CreatedAt.After(timeRange.End) {
				timeRange.End = item.CreatedAt
			}
		}
	}

	if n := len(assembled.Items); n > 0 {
		assembled.Summary.AvgRelevanceScore = scoreSum / float64(n)
	}
	assembled.Summary.TimeRange = timeRange

	return assembled
}
