package jira

import "strings"

// adfNode is a node of an Atlassian Document Format document. ADF is the
// nested JSON structure Jira Cloud API v3 uses for rich text fields.
type adfNode struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []adfNode      `json:"content,omitempty"`
}

// extractADF returns the text of doc joined by spaces and the media
// references it embeds. Attachments are reported as "attachment:<id>",
// external media by their url.
func extractADF(doc *adfNode) (string, []string) {
	if doc == nil {
		return "", nil
	}

	var text []string
	var media []string
	walkADF(doc, &text, &media)
	return strings.TrimSpace(strings.Join(text, " ")), media
}

func walkADF(n *adfNode, text, media *[]string) {
	switch n.Type {
	case "text":
		*text = append(*text, n.Text)
	case "media", "mediaInline", "mediaSingle":
		if id, ok := n.Attrs["id"].(string); ok && id != "" {
			*media = append(*media, "attachment:"+id)
		} else if u, ok := n.Attrs["url"].(string); ok && u != "" {
			*media = append(*media, u)
		}
	}

	for i := range n.Content {
		walkADF(&n.Content[i], text, media)
	}
}
