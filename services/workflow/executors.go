package workflow

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const tweetLimit = 280

// GmailExecutor simulates the gmail tool. Nothing is sent.
type GmailExecutor struct{}

func (e *GmailExecutor) Execute(_ context.Context, function string, args map[string]any) (map[string]any, error) {
	switch function {
	case "sendEmail":
		to, err := requireString(args, "to")
		if err != nil {
			return nil, err
		}
		if !strings.Contains(to, "@") {
			return nil, fmt.Errorf("invalid recipient %q", to)
		}
		subject, _ := args["subject"].(string)
		body, _ := args["body"].(string)
		return map[string]any{
			"message": fmt.Sprintf("Email to %s drafted", to),
			"output":  "msg-" + uuid.New().String()[:8],
			"emailDraft": map[string]any{
				"to":      to,
				"subject": subject,
				"body":    body,
			},
		}, nil

	case "readEmails":
		query, _ := args["query"].(string)
		limit := 10
		if n, ok := args["maxResults"].(float64); ok && n > 0 {
			limit = int(n)
		}
		return map[string]any{
			"message": fmt.Sprintf("Read up to %d emails matching %q", limit, query),
			"output":  fmt.Sprintf("[%d emails matching %q]", limit, query),
		}, nil
	}
	return nil, unknownFunction("gmail", function)
}

// SlackExecutor simulates the slack tool.
type SlackExecutor struct{}

func (e *SlackExecutor) Execute(_ context.Context, function string, args map[string]any) (map[string]any, error) {
	if function != "sendMessage" {
		return nil, unknownFunction("slack", function)
	}
	channel, err := requireString(args, "channel")
	if err != nil {
		return nil, err
	}
	text, err := requireString(args, "text")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"message": fmt.Sprintf("Message posted to %s", channel),
		"output":  text,
	}, nil
}

// ChatGPTExecutor simulates the language model tool with deterministic text shaping.
type ChatGPTExecutor struct{}

func (e *ChatGPTExecutor) Execute(_ context.Context, function string, args map[string]any) (map[string]any, error) {
	switch function {
	case "summarizeText":
		text, err := requireString(args, "text")
		if err != nil {
			return nil, err
		}
		limit := 200
		if n, ok := args["maxLength"].(float64); ok && n > 0 {
			limit = int(n)
		}
		summary := truncate(text, limit)
		return map[string]any{
			"message": fmt.Sprintf("Summarized %d characters into %d", utf8.RuneCountInString(text), utf8.RuneCountInString(summary)),
			"output":  summary,
		}, nil

	case "generateText":
		prompt, err := requireString(args, "prompt")
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"message": "Generated text",
			"output":  "Generated from: " + truncate(prompt, 200),
		}, nil

	case "extractData":
		text, err := requireString(args, "text")
		if err != nil {
			return nil, err
		}
		fields, _ := args["fields"].(string)
		return map[string]any{
			"message": fmt.Sprintf("Extracted [%s]", fields),
			"output":  fmt.Sprintf("{%s} from %s", fields, truncate(text, 80)),
		}, nil
	}
	return nil, unknownFunction("chatgpt", function)
}

// WebScraperExecutor simulates page fetches. No request leaves the process.
type WebScraperExecutor struct{}

func (e *WebScraperExecutor) Execute(_ context.Context, function string, args map[string]any) (map[string]any, error) {
	url, err := requireString(args, "url")
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("invalid url %q", url)
	}

	switch function {
	case "fetchPage":
		return map[string]any{
			"message": "Fetched " + url,
			"output":  "Content of " + url,
		}, nil
	case "extractLinks":
		return map[string]any{
			"message": "Extracted links from " + url,
			"output":  "Links on " + url,
		}, nil
	}
	return nil, unknownFunction("webscraper", function)
}

// TwitterExecutor simulates posting.
type TwitterExecutor struct{}

func (e *TwitterExecutor) Execute(_ context.Context, function string, args map[string]any) (map[string]any, error) {
	if function != "postTweet" {
		return nil, unknownFunction("twitter", function)
	}
	text, err := requireString(args, "text")
	if err != nil {
		return nil, err
	}
	text = truncate(text, tweetLimit)
	return map[string]any{
		"message": fmt.Sprintf("Tweet of %d characters posted", utf8.RuneCountInString(text)),
		"output":  text,
	}, nil
}

// SheetsExecutor simulates the spreadsheet tool.
type SheetsExecutor struct{}

func (e *SheetsExecutor) Execute(_ context.Context, function string, args map[string]any) (map[string]any, error) {
	id, err := requireString(args, "spreadsheetId")
	if err != nil {
		return nil, err
	}

	switch function {
	case "appendRow":
		values, _ := args["values"].(string)
		return map[string]any{
			"message": "Row appended to " + id,
			"output":  values,
		}, nil
	case "readRange":
		rng, _ := args["range"].(string)
		return map[string]any{
			"message": fmt.Sprintf("Read %s from %s", rng, id),
			"output":  fmt.Sprintf("[values of %s!%s]", id, rng),
		}, nil
	}
	return nil, unknownFunction("googlesheets", function)
}

func requireString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing required parameter: %s", key)
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return "", fmt.Errorf("parameter %s must be a non-empty string", key)
	}
	return s, nil
}

func unknownFunction(tool, function string) error {
	return fmt.Errorf("tool %s has no function %q", tool, function)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
