// Package format renders an assembled context into a prompt-ready text block.
package format

import (
	"fmt"
	"strings"

	"context-engine/retrieval"
)

// ForPrompt renders the context as markdown sections grouped by source type:
// memories, then conversation history, then document excerpts. An empty
// context renders to an empty string.
func ForPrompt(assembled retrieval.AssembledContext) string {
	if len(assembled.Items) == 0 {
		return ""
	}

	var memories, messages, documents []retrieval.ContextItem
	for _, item := range assembled.Items {
		switch item.Type {
		case retrieval.ItemTypeMemory:
			memories = append(memories, item)
		case retrieval.ItemTypeMessage:
			messages = append(messages, item)
		case retrieval.ItemTypeDocument:
			documents = append(documents, item)
		}
	}

	var b strings.Builder

	if len(memories) > 0 {
		b.WriteString("## Relevant Memories\n\n")
		for _, item := range memories {
			kind, _ := item.Metadata["type"].(string)
			if kind != "" {
				fmt.Fprintf(&b, "- [%s] %s\n", kind, item.Content)
			} else {
				fmt.Fprintf(&b, "- %s\n", item.Content)
			}
		}
		b.WriteString("\n")
	}

	if len(messages) > 0 {
		b.WriteString("## Conversation History\n\n")
		for _, item := range messages {
			role, _ := item.Metadata["role"].(string)
			if role == "" {
				role = "user"
			}
			fmt.Fprintf(&b, "- %s: %s\n", role, item.Content)
		}
		b.WriteString("\n")
	}

	if len(documents) > 0 {
		b.WriteString("## Document Excerpts\n\n")
		for _, item := range documents {
			title, _ := item.Metadata["documentTitle"].(string)
			if title != "" {
				fmt.Fprintf(&b, "### %s\n\n%s\n\n", title, item.Content)
			} else {
				fmt.Fprintf(&b, "%s\n\n", item.Content)
			}
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}
