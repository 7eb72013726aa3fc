package jira

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// TaskContext renders an issue as markdown for an agent prompt: key,
// summary, description and any embedded attachments.
func (c *Client) TaskContext(ctx context.Context, key string) (string, error) {
	issue, err := c.getIssue(ctx, key)
	if err != nil {
		return "", err
	}

	description, media := extractADF(issue.Fields.Description)

	var b strings.Builder
	fmt.Fprintf(&b, "**Task:** %s\n**Summary:** %s\n\n", key, summaryOrDefault(issue.Fields.Summary))
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

// CommentsContext renders an issue with its comment thread as markdown.
// The issue and its comments are fetched concurrently.
func (c *Client) CommentsContext(ctx context.Context, key string) (string, error) {
	var (
		issue    *jiraIssue
		comments []jiraComment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		issue, err = c.getIssue(gctx, key)
		return err
	})
	g.Go(func() error {
		var err error
		comments, err = c.comments(gctx, key)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	description, _ := extractADF(issue.Fields.Description)

	var b strings.Builder
	fmt.Fprintf(&b, "**JIRA Task: %s**\n**Summary:** %s\n\n", key, summaryOrDefault(issue.Fields.Summary))
	if description != "" {
		fmt.Fprintf(&b, "**Description:**\n%s\n\n", description)
	}
	if len(comments) > 0 {
		b.WriteString("**Comments:**\n")
		for i, comment := range comments {
			text, _ := extractADF(comment.Body)
			if text == "" {
				continue
			}
			author := comment.Author.DisplayName
			if author == "" {
				author = "Unknown"
			}
			created := comment.Created
			if created == "" {
				created = "Unknown date"
			}
			fmt.Fprintf(&b, "%d. **%s** (%s):\n%s\n\n", i+1, author, created, text)
		}
	}
	return b.String(), nil
}

func summaryOrDefault(s string) string {
	if s == "" {
		return "No summary"
	}
	return s
}
