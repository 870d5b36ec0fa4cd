package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jhlee-dev/rudder/internal/llm"
)

// Research runs a multi-query web investigation: generate search queries,
// collect results through the search tool, and synthesize a report.
type Research struct{}

func (w *Research) Name() string { return "research" }

func (w *Research) Run(ctx context.Context, deps Deps, message string) (string, error) {
	queries, err := w.generateQueries(ctx, deps.Client, message)
	if err != nil {
		return "", err
	}

	results := w.runSearches(ctx, deps, queries)
	if len(results) == 0 {
		return w.fallback(ctx, deps.Client, message)
	}

	return w.synthesize(ctx, deps.Client, message, results)
}

func (w *Research) generateQueries(ctx context.Context, client llm.Client, topic string) ([]string, error) {
	prompt := fmt.Sprintf(`Generate search queries for a thorough investigation of the topic below.

Topic: %s

Produce 3-5 distinct queries covering different angles: basic definitions, latest news, expert analysis, statistics, and future outlook. Use specific, search-optimized keywords with no overlap between queries.

Respond as JSON:
{"queries": ["query1", "query2"]}`, topic)

	resp, err := client.Generate(ctx, []llm.Message{llm.User(prompt)})
	if err != nil {
		return nil, err
	}

	raw, ok := llm.ExtractJSONObject(resp.Response)
	if ok {
		var data struct {
			Queries []string `json:"queries"`
		}
		if err := json.Unmarshal([]byte(raw), &data); err == nil && len(data.Queries) > 0 {
			return data.Queries, nil
		}
	}
	return []string{topic, topic + " latest news", topic + " analysis"}, nil
}

func (w *Research) runSearches(ctx context.Context, deps Deps, queries []string) map[string]string {
	if !w.hasSearchTool(ctx, deps) {
		return nil
	}

	results := make(map[string]string)
	for _, query := range queries {
		res, err := deps.Invoker.CallTool(ctx, "search", map[string]any{"query": query})
		if err != nil {
			results[query] = fmt.Sprintf("search failed: %v", err)
			continue
		}
		results[query] = res
	}
	return results
}

func (w *Research) hasSearchTool(ctx context.Context, deps Deps) bool {
	if deps.Invoker == nil {
		return false
	}
	infos, err := deps.Invoker.Catalog(ctx)
	if err != nil {
		return false
	}
	for _, info := range infos {
		if info.Name == "search" {
			return true
		}
	}
	return false
}

func (w *Research) synthesize(ctx context.Context, client llm.Client, topic string, results map[string]string) (string, error) {
	var sb strings.Builder
	for query, res := range results {
		fmt.Fprintf(&sb, "## Query: %s\n%s\n\n", query, res)
	}

	prompt := fmt.Sprintf(`Write a comprehensive research report on the topic below using the collected search results. Structure it with an overview, key findings, and a conclusion. Cite concrete facts from the results rather than generalities.

Topic: %s

Collected results:
%s`, topic, sb.String())

	resp, err := client.Generate(ctx, []llm.Message{llm.User(prompt)})
	if err != nil {
		return "", err
	}
	return resp.Response, nil
}

// fallback answers from the model alone when no search tool is available.
func (w *Research) fallback(ctx context.Context, client llm.Client, topic string) (string, error) {
	resp, err := client.Generate(ctx, []llm.Message{llm.User(
		fmt.Sprintf("Provide the most complete answer you can about: %s", topic))})
	if err != nil {
		return "", err
	}
	return resp.Response, nil
}
