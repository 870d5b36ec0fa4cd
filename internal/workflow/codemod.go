package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhlee-dev/rudder/internal/llm"
)

// CodeModification handles read-modify-write requests against a single
// source file: extract the target path, read it, rewrite it with the model,
// and save the result.
type CodeModification struct{}

func (w *CodeModification) Name() string { return "code_mod" }

func (w *CodeModification) Run(ctx context.Context, deps Deps, message string) (string, error) {
	path, err := w.extractFilePath(ctx, deps.Client, message)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "could not determine which file to modify, please specify a concrete file path", nil
	}

	original, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", path, err)
	}

	modified, err := w.rewrite(ctx, deps.Client, string(original), message)
	if err != nil {
		return "", err
	}
	if modified == "" || modified == string(original) {
		return fmt.Sprintf("no modification needed for %s", path), nil
	}

	if err := os.WriteFile(path, []byte(modified), 0644); err != nil {
		return "", fmt.Errorf("cannot write %s: %w", path, err)
	}
	return fmt.Sprintf("modified %s", path), nil
}

func (w *CodeModification) extractFilePath(ctx context.Context, client llm.Client, message string) (string, error) {
	prompt := fmt.Sprintf(`Extract the path of the file the user wants to modify from the message below.
Return the file path only, with no explanation.
If no file path is given, return "NONE".

User message: %s

File path:`, message)

	resp, err := client.Generate(ctx, []llm.Message{llm.User(prompt)})
	if err != nil {
		return "", err
	}

	path := strings.TrimSpace(resp.Response)
	if path == "" || path == "NONE" {
		return "", nil
	}
	if !filepath.IsAbs(path) {
		path, _ = filepath.Abs(path)
	}
	if _, err := os.Stat(path); err != nil {
		return "", nil
	}
	return path, nil
}

func (w *CodeModification) rewrite(ctx context.Context, client llm.Client, original, message string) (string, error) {
	prompt := fmt.Sprintf(`Below are the user's request and the original code. Modify the code per the request, then return only the full modified code with no explanation.

# User request:
%s

# Original code:
`+"```"+`
%s
`+"```"+`

# Modified code:`, message, original)

	resp, err := client.Generate(ctx, []llm.Message{llm.User(prompt)})
	if err != nil {
		return "", err
	}
	return stripCodeFence(resp.Response), nil
}

// stripCodeFence unwraps a markdown code block, dropping a leading language
// specifier line if present.
func stripCodeFence(text string) string {
	if !strings.Contains(text, "```") {
		return strings.TrimSpace(text)
	}
	parts := strings.Split(text, "```")
	if len(parts) < 2 {
		return strings.TrimSpace(text)
	}
	code := parts[1]
	if idx := strings.Index(code, "\n"); idx != -1 {
		first := strings.TrimSpace(code[:idx])
		if first != "" && !strings.ContainsAny(first, " \t{}()") {
			code = code[idx+1:]
		}
	}
	return strings.TrimSpace(code)
}
