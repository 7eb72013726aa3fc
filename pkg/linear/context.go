package linear

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// markdownImage matches ![alt](url) image references in issue bodies.
var markdownImage = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)[^)]*\)`)

func extractMedia(markdown string) []string {
	var media []string
	for _, m := range markdownImage.FindAllStringSubmatch(markdown, -1) {
		media = append(media, m[1])
	}
	return media
}

// TaskContext renders an issue as markdown for an agent prompt.
func (c *Client) TaskContext(ctx context.Context, key string) (string, error) {
	issue, err := c.getIssue(ctx, key)
	if err != nil {
		return "", err
	}

	description := strings.TrimSpace(issue.Description)
	media := extractMedia(description)

	var b strings.Builder
	fmt.Fprintf(&b, "**Task:** %s\n**Summary:** %s\n\n", key, titleOrDefault(issue.Title))
	if description != "" {
		fmt.Fprintf(&b, "**Description:**\n%s\n\n", description)
	}
	if len(media) > 0 {
		b.WriteString("**Images/Attachments:**\n")
		for i, ref := range media {
			fmt.Fprintf(&b, "%d. %s\n", i+1, ref)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

const commentsQuery = `query IssueComments($id: String!) {
  issue(id: $id) {
    identifier
    title
    url
    description
    comments {
      nodes { body createdAt user { name } }
    }
  }
}`

// CommentsContext renders an issue with its comment thread as markdown.
func (c *Client) CommentsContext(ctx context.Context, key string) (string, error) {
	var data struct {
		Issue *struct {
			issueNode
			Comments struct {
				Nodes []struct {
					Body      string `json:"body"`
					CreatedAt string `json:"createdAt"`
					User      *struct {
						Name string `json:"name"`
					} `json:"user"`
				} `json:"nodes"`
			} `json:"comments"`
		} `json:"issue"`
	}
	if err := c.query(ctx, "CommentsContext", key, commentsQuery, map[string]any{"id": key}, &data); err != nil {
		return "", err
	}
	if data.Issue == nil {
		return "", errIssueNotFound("CommentsContext", key)
	}
	c.rememberURL(&data.Issue.issueNode)

	var b strings.Builder
	fmt.Fprintf(&b, "**Linear Task: %s**\n**Summary:** %s\n\n", key, titleOrDefault(data.Issue.Title))
	if d := strings.TrimSpace(data.Issue.Description); d != "" {
		fmt.Fprintf(&b, "**Description:**\n%s\n\n", d)
	}
	if comments := data.Issue.Comments.Nodes; len(comments) > 0 {
		b.WriteString("**Comments:**\n")
		for i, comment := range comments {
			text := strings.TrimSpace(comment.Body)
			if text == "" {
				continue
			}
			author := "Unknown"
			if comment.User != nil && comment.User.Name != "" {
				author = comment.User.Name
			}
			created := comment.CreatedAt
			if created == "" {
				created = "Unknown date"
			}
			fmt.Fprintf(&b, "%d. **%s** (%s):\n%s\n\n", i+1, author, created, text)
		}
	}
	return b.String(), nil
}

func titleOrDefault(s string) string {
	if s == "" {
		return "No summary"
	}
	return s
}
