package generator

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/notkisk/AIAgentBuilder-sub000/services/workflow"
)

// template is one canned workflow of the fallback catalog.
type template struct {
	name        string
	description string
	keywords    []string
	build       func(prompt string) []workflow.Node
}

// toolDefault is the node AddNode inserts when a prompt asks for a tool by name.
type toolDefault struct {
	function string
	input    string
	params   workflow.Params
}

var toolDefaults = map[string]toolDefault{
	"gmail": {
		function: "sendEmail", input: "body",
		params: workflow.Params{"to": workflow.String(""), "subject": workflow.String("Workflow update")},
	},
	"slack": {
		function: "sendMessage", input: "text",
		params: workflow.Params{"channel": workflow.String("#general")},
	},
	"chatgpt": {
		function: "summarizeText", input: "text",
		params: workflow.Params{"maxLength": workflow.Number(200)},
	},
	"webscraper": {
		function: "fetchPage",
		params:   workflow.Params{"url": workflow.String("https://example.com")},
	},
	"twitter": {
		function: "postTweet", input: "text",
	},
	"googlesheets": {
		function: "appendRow", input: "values",
		params: workflow.Params{"spreadsheetId": workflow.String("")},
	},
}

// toolAliases maps prompt words to catalog tool names.
var toolAliases = map[string]string{
	"gmail":        "gmail",
	"email":        "gmail",
	"mail":         "gmail",
	"slack":        "slack",
	"chatgpt":      "chatgpt",
	"gpt":          "chatgpt",
	"summarize":    "chatgpt",
	"summary":      "chatgpt",
	"webscraper":   "webscraper",
	"scraper":      "webscraper",
	"scrape":       "webscraper",
	"twitter":      "twitter",
	"tweet":        "twitter",
	"googlesheets": "googlesheets",
	"sheet":        "googlesheets",
	"sheets":       "googlesheets",
	"spreadsheet":  "googlesheets",
}

var (
	urlPattern     = regexp.MustCompile(`https?://[^\s"'<>]+`)
	emailPattern   = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	setPattern     = regexp.MustCompile(`(?i)\bset\s+(?:the\s+)?([A-Za-z_][A-Za-z0-9_]*)\s+to\s+(.+)$`)
	connectPattern = regexp.MustCompile(`(?i)\bconnect\s+(\S+)\s+(?:to|with|and)\s+(\S+)`)
	connectWord    = regexp.MustCompile(`(?i)\b(connect|link|chain)\b`)
	deleteWord     = regexp.MustCompile(`(?i)\b(delete|remove|drop)\b`)
	addWord        = regexp.MustCompile(`(?i)\b(add|insert|append)\b`)
	wordPattern    = regexp.MustCompile(`[A-Za-z]+`)
)

// catalog is checked in order; the first template with a matching keyword wins and
// the last one is the default.
var catalog = []template{
	{
		name:        "Slack Digest",
		description: "Scrape a page, summarize it and post the summary to Slack",
		keywords:    []string{"slack"},
		build: func(prompt string) []workflow.Node {
			return []workflow.Node{
				{ID: "1", Tool: "webscraper", Function: "fetchPage",
					Params: workflow.Params{"url": workflow.String(firstURL(prompt))}, Next: "2"},
				{ID: "2", Tool: "chatgpt", Function: "summarizeText",
					Params: workflow.Params{"text": workflow.OutputOf("1"), "maxLength": workflow.Number(200)}, Next: "3"},
				{ID: "3", Tool: "slack", Function: "sendMessage",
					Params: workflow.Params{"channel": workflow.String("#general"), "text": workflow.OutputOf("2")}},
			}
		},
	},
	{
		name:        "Social Post",
		description: "Scrape a page, write a post about it and publish it on Twitter",
		keywords:    []string{"tweet", "twitter", "social"},
		build: func(prompt string) []workflow.Node {
			return []workflow.Node{
				{ID: "1", Tool: "webscraper", Function: "fetchPage",
					Params: workflow.Params{"url": workflow.String(firstURL(prompt))}, Next: "2"},
				{ID: "2", Tool: "chatgpt", Function: "generateText",
					Params: workflow.Params{"prompt": workflow.OutputOf("1")}, Next: "3"},
				{ID: "3", Tool: "twitter", Function: "postTweet",
					Params: workflow.Params{"text": workflow.OutputOf("2")}},
			}
		},
	},
	{
		name:        "Sheet Report",
		description: "Read recent emails, extract their key fields and append them to a spreadsheet",
		keywords:    []string{"sheet", "spreadsheet", "report"},
		build: func(string) []workflow.Node {
			return []workflow.Node{
				{ID: "1", Tool: "gmail", Function: "readEmails",
					Params: workflow.Params{"query": workflow.String("is:unread"), "maxResults": workflow.Number(10)}, Next: "2"},
				{ID: "2", Tool: "chatgpt", Function: "extractData",
					Params: workflow.Params{"text": workflow.OutputOf("1"), "fields": workflow.String("sender,subject,date")}, Next: "3"},
				{ID: "3", Tool: "googlesheets", Function: "appendRow",
					Params: workflow.Params{"spreadsheetId": workflow.String(""), "values": workflow.OutputOf("2")}},
			}
		},
	},
	{
		name:        "Summary Email",
		description: "Scrape a page, summarize it and email the summary",
		keywords:    []string{"email", "summar"},
		build: func(prompt string) []workflow.Node {
			return []workflow.Node{
				{ID: "1", Tool: "webscraper", Function: "fetchPage",
					Params: workflow.Params{"url": workflow.String(firstURL(prompt))}, Next: "2"},
				{ID: "2", Tool: "chatgpt", Function: "summarizeText",
					Params: workflow.Params{"text": workflow.OutputOf("1"), "maxLength": workflow.Number(200)}, Next: "3"},
				{ID: "3", Tool: "gmail", Function: "sendEmail",
					Params: workflow.Params{
						"to":      workflow.String(firstEmail(prompt)),
						"subject": workflow.String("Your summary"),
						"body":    workflow.OutputOf("2"),
					}},
			}
		},
	},
}

// TemplateGenerator answers prompts from a fixed catalog of workflows and a few
// scripted editing rules. It never calls out and always returns a valid list.
type TemplateGenerator struct{}

// NewTemplateGenerator creates the fallback generator.
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

// Generate matches the prompt against the template catalog, or against the editing
// rules when the request carries existing nodes.
func (g *TemplateGenerator) Generate(_ context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	if req.Modify() {
		return g.modify(req)
	}
	return g.create(req.Prompt), nil
}

func (g *TemplateGenerator) create(prompt string) *Response {
	lower := strings.ToLower(prompt)
	chosen := catalog[len(catalog)-1]
	for _, t := range catalog {
		if containsAny(lower, t.keywords) {
			chosen = t
			break
		}
	}

	return &Response{
		Name:        chosen.name,
		Description: chosen.description,
		Message:     fmt.Sprintf("Created the %q template workflow.", chosen.name),
		Nodes:       workflow.Envelope{Nodes: chosen.build(prompt)},
		Source:      SourceTemplate,
	}
}

// modify applies the first editing rule that matches: set, connect, delete, add.
func (g *TemplateGenerator) modify(req Request) (*Response, error) {
	nodes := req.ExistingNodes
	var (
		out     []workflow.Node
		message string
		err     error
	)

	switch {
	case setPattern.MatchString(req.Prompt):
		out, message = setParam(nodes, req.Prompt)
	case connectWord.MatchString(req.Prompt):
		out, message, err = connect(nodes, req.Prompt)
	case deleteWord.MatchString(req.Prompt):
		out, message = remove(nodes, req.Prompt)
	case addWord.MatchString(req.Prompt):
		out, message, err = add(nodes, req.Prompt)
	}
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = nodes
		message = "No editing rule matched the request; the workflow is unchanged."
	}

	return &Response{
		Message: message,
		Nodes:   workflow.Envelope{Nodes: out},
		Source:  SourceTemplate,
	}, nil
}

// setParam assigns a value to the first node that already has the named parameter.
func setParam(nodes []workflow.Node, prompt string) ([]workflow.Node, string) {
	m := setPattern.FindStringSubmatch(prompt)
	key := m[1]
	value := strings.Trim(strings.TrimSpace(m[2]), `"'.`)

	for _, n := range nodes {
		if _, ok := n.Params[key]; !ok {
			continue
		}
		params := n.Params.Clone()
		params[key] = workflow.Text(value)
		out, err := workflow.ReconfigureNode(nodes, n.ID, n.Tool, n.Function, params)
		if err != nil {
			return nil, ""
		}
		return out, fmt.Sprintf("Set %s of node %s to %q.", key, n.ID, value)
	}
	return nil, ""
}

// connect links two named nodes, or chains every open end to the node after it.
func connect(nodes []workflow.Node, prompt string) ([]workflow.Node, string, error) {
	if m := connectPattern.FindStringSubmatch(prompt); m != nil {
		src, okSrc := resolveNode(nodes, m[1], false)
		dst, okDst := resolveNode(nodes, m[2], true)
		if okSrc && okDst {
			out, err := workflow.ConnectNodes(nodes, src, dst)
			if err != nil {
				return nil, "", err
			}
			return out, fmt.Sprintf("Connected node %s to node %s.", src, dst), nil
		}
	}

	out := nodes
	touched := make(map[string]bool)
	for i := 0; i+1 < len(nodes); i++ {
		if nodes[i].Next != "" {
			continue
		}
		var err error
		out, err = workflow.ConnectNodes(out, nodes[i].ID, nodes[i+1].ID)
		if err != nil {
			return nil, "", err
		}
		touched[nodes[i].ID] = true
		touched[nodes[i+1].ID] = true
	}
	if len(touched) == 0 {
		return nil, "", nil
	}
	return out, fmt.Sprintf("Connected %s in list order.", pluralNodes(len(touched))), nil
}

// remove deletes the last node using the tool named in the prompt.
func remove(nodes []workflow.Node, prompt string) ([]workflow.Node, string) {
	for _, tool := range mentionedTools(prompt) {
		for i := len(nodes) - 1; i >= 0; i-- {
			if nodes[i].Tool == tool {
				return workflow.DeleteNode(nodes, nodes[i].ID),
					fmt.Sprintf("Removed the %s step (node %s).", tool, nodes[i].ID)
			}
		}
	}
	return nil, ""
}

// add appends a node for the tool named in the prompt and connects the last open end
// of the chain to it, feeding that node's output into the new one.
func add(nodes []workflow.Node, prompt string) ([]workflow.Node, string, error) {
	tools := mentionedTools(prompt)
	if len(tools) == 0 {
		return nil, "", nil
	}
	tool := tools[0]
	def := toolDefaults[tool]

	tail := tailNode(nodes)
	params := def.params.Clone()
	if def.input != "" {
		if tail != "" {
			params[def.input] = workflow.OutputOf(tail)
		} else {
			params[def.input] = workflow.String("")
		}
	}

	out, node := workflow.AddNode(nodes, tool, def.function, params)
	if tail != "" {
		var err error
		if out, err = workflow.ConnectNodes(out, tail, node.ID); err != nil {
			return nil, "", err
		}
	}
	return out, fmt.Sprintf("Added a %s.%s step as node %s.", tool, def.function, node.ID), nil
}

// resolveNode accepts a node id or a tool name. Tool names resolve to the first node
// using that tool, or the last one when last is set.
func resolveNode(nodes []workflow.Node, token string, last bool) (string, bool) {
	token = strings.Trim(token, `"'.,`)
	for _, n := range nodes {
		if n.ID == token {
			return n.ID, true
		}
	}
	tool, ok := toolAliases[strings.ToLower(token)]
	if !ok {
		return "", false
	}
	found := ""
	for _, n := range nodes {
		if n.Tool == tool {
			found = n.ID
			if !last {
				break
			}
		}
	}
	return found, found != ""
}

// tailNode returns the last node in list order with no successor.
func tailNode(nodes []workflow.Node) string {
	for i := len(nodes) - 1; i >= 0; i-- {
		if nodes[i].Next == "" {
			return nodes[i].ID
		}
	}
	return ""
}

// mentionedTools lists the catalog tools named in the prompt, in prompt order.
func mentionedTools(prompt string) []string {
	var tools []string
	for _, word := range wordPattern.FindAllString(strings.ToLower(prompt), -1) {
		tool, ok := toolAliases[word]
		if ok && !containsString(tools, tool) {
			tools = append(tools, tool)
		}
	}
	return tools
}

func firstURL(prompt string) string {
	if u := urlPattern.FindString(prompt); u != "" {
		return strings.TrimRight(u, ".,)")
	}
	return "https://news.ycombinator.com"
}

func firstEmail(prompt string) string {
	if e := emailPattern.FindString(prompt); e != "" {
		return e
	}
	return "me@example.com"
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func paramList(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + params[k]
	}
	return strings.Join(parts, ", ")
}

func pluralNodes(n int) string {
	if n == 1 {
		return "1 node"
	}
	return strconv.Itoa(n) + " nodes"
}
