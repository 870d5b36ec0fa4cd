package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type FilesystemTool struct {
	Root string
}

func NewFilesystemTool(root string) *FilesystemTool {
	absRoot, _ := filepath.Abs(root)
	return &FilesystemTool{Root: absRoot}
}

func (f *FilesystemTool) Name() string {
	return "filesystem"
}

func (f *FilesystemTool) Description() string {
	return "Manage files in the local workspace: read, write, list, delete, and mkdir."
}

func (f *FilesystemTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"enum":        []string{"read", "write", "list", "delete", "mkdir"},
				"description": "The operation to perform",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "The file or directory path, relative to the workspace",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "The content to write (only for 'write')",
			},
		},
		"required": []string{"command", "path"},
	}
}

func (f *FilesystemTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Command string `json:"command"`
		Path    string `json:"path"`
		Content string `json:"content"`
	}

	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}

	targetPath := filepath.Join(f.Root, args.Path)

	// Safety check: ensure targetPath is within f.Root
	rel, err := filepath.Rel(f.Root, targetPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return errorResult(fmt.Sprintf("unsafe path: %s", args.Path)), nil
	}

	switch args.Command {
	case "read":
		data, err := os.ReadFile(targetPath)
		if err != nil {
			return errorResult(fmt.Sprintf("failed to read file: %v", err)), nil
		}
		return jsonResult(map[string]any{
			"path":    args.Path,
			"content": string(data),
		}), nil
	case "write":
		if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
			return errorResult(fmt.Sprintf("failed to create parent directory: %v", err)), nil
		}
		if err := os.WriteFile(targetPath, []byte(args.Content), 0644); err != nil {
			return errorResult(fmt.Sprintf("failed to write file: %v", err)), nil
		}
		return jsonResult(map[string]any{
			"path":    args.Path,
			"message": fmt.Sprintf("wrote %d bytes to %s", len(args.Content), args.Path),
		}), nil
	case "list":
		entries, err := os.ReadDir(targetPath)
		if err != nil {
			return errorResult(fmt.Sprintf("failed to list directory: %v", err)), nil
		}
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() {
				name += "/"
			}
			names = append(names, name)
		}
		return jsonResult(map[string]any{
			"path":    args.Path,
			"count":   len(names),
			"entries": names,
		}), nil
	case "delete":
		if err := os.Remove(targetPath); err != nil {
			return errorResult(fmt.Sprintf("failed to delete: %v", err)), nil
		}
		return jsonResult(map[string]any{
			"path":    args.Path,
			"message": fmt.Sprintf("deleted %s", args.Path),
		}), nil
	case "mkdir":
		if err := os.MkdirAll(targetPath, 0755); err != nil {
			return errorResult(fmt.Sprintf("failed to create directory: %v", err)), nil
		}
		return jsonResult(map[string]any{
			"path":    args.Path,
			"message": fmt.Sprintf("created directory %s", args.Path),
		}), nil
	default:
		return errorResult("invalid command, use 'read', 'write', 'list', 'delete', or 'mkdir'"), nil
	}
}
