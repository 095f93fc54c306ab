package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultTools is the reference catalog seeded at startup.
func DefaultTools() []Tool {
	return []Tool{
		{
			Name: "gmail", Type: "email", Enabled: true,
			Description: "Read and send email through a Gmail account",
			Auth:        json.RawMessage(`{"type":"oauth2","scopes":["gmail.send","gmail.readonly"]}`),
			Functions: []ToolFunction{
				{
					Name: "sendEmail", Description: "Send an email",
					Parameters: map[string]string{"to": "string", "subject": "string", "body": "string"},
					Returns:    "messageId",
				},
				{
					Name: "readEmails", Description: "Fetch emails matching a search query",
					Parameters: map[string]string{"query": "string", "maxResults": "number"},
					Returns:    "emails",
				},
			},
		},
		{
			Name: "slack", Type: "messaging", Enabled: true,
			Description: "Post messages to Slack channels",
			Auth:        json.RawMessage(`{"type":"oauth2","scopes":["chat:write"]}`),
			Functions: []ToolFunction{
				{
					Name: "sendMessage", Description: "Post a message to a channel",
					Parameters: map[string]string{"channel": "string", "text": "string"},
					Returns:    "timestamp",
				},
			},
		},
		{
			Name: "chatgpt", Type: "ai", Enabled: true,
			Description: "Language model text processing",
			Auth:        json.RawMessage(`{"type":"apiKey"}`),
			Functions: []ToolFunction{
				{
					Name: "summarizeText", Description: "Summarize a block of text",
					Parameters: map[string]string{"text": "string", "maxLength": "number"},
					Returns:    "summary",
				},
				{
					Name: "generateText", Description: "Generate text from a prompt",
					Parameters: map[string]string{"prompt": "string"},
					Returns:    "text",
				},
				{
					Name: "extractData", Description: "Extract structured fields from text",
					Parameters: map[string]string{"text": "string", "fields": "string"},
					Returns:    "data",
				},
			},
		},
		{
			Name: "webscraper", Type: "web", Enabled: true,
			Description: "Fetch and extract content from web pages",
			Auth:        json.RawMessage(`{"type":"none"}`),
			Functions: []ToolFunction{
				{
					Name: "fetchPage", Description: "Download the readable content of a page",
					Parameters: map[string]string{"url": "string"},
					Returns:    "content",
				},
				{
					Name: "extractLinks", Description: "List the links found on a page",
					Parameters: map[string]string{"url": "string"},
					Returns:    "links",
				},
			},
		},
		{
			Name: "twitter", Type: "social", Enabled: true,
			Description: "Publish posts to Twitter",
			Auth:        json.RawMessage(`{"type":"oauth2","scopes":["tweet.write"]}`),
			Functions: []ToolFunction{
				{
					Name: "postTweet", Description: "Publish a tweet",
					Parameters: map[string]string{"text": "string"},
					Returns:    "tweetId",
				},
			},
		},
		{
			Name: "googlesheets", Type: "spreadsheet", Enabled: true,
			Description: "Read and append rows in Google Sheets",
			Auth:        json.RawMessage(`{"type":"oauth2","scopes":["spreadsheets"]}`),
			Functions: []ToolFunction{
				{
					Name: "appendRow", Description: "Append a row to a sheet",
					Parameters: map[string]string{"spreadsheetId": "string", "values": "string"},
					Returns:    "updatedRange",
				},
				{
					Name: "readRange", Description: "Read a range of cells",
					Parameters: map[string]string{"spreadsheetId": "string", "range": "string"},
					Returns:    "values",
				},
			},
		},
	}
}

// SeedTools inserts the default catalog. Entries that already exist are left alone,
// so seeding twice is harmless.
func SeedTools(ctx context.Context, repo ToolRepo) error {
	for _, tool := range DefaultTools() {
		if _, err := repo.CreateTool(ctx, tool); err != nil && !errors.Is(err, ErrConflict) {
			return fmt.Errorf("seed tool %s: %w", tool.Name, err)
		}
	}
	return nil
}
