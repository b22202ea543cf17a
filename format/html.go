package format

import "github.com/gomarkdown/markdown"

// ToHTML renders the markdown context block to HTML for the preview endpoint.
func ToHTML(md string) string {
	if md == "" {
		return ""
	}
	return string(markdown.ToHTML([]byte(md), nil, nil))
}
