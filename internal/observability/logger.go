package observability

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypePlan          EventType = "plan"
	EventTypeStep          EventType = "step"
	EventTypeToolCall      EventType = "tool_call"
	EventTypeRetry         EventType = "retry"
	EventTypeDuplicatePlan EventType = "duplicate_plan"
	EventTypeIteration     EventType = "iteration"
	EventTypePolicyCheck   EventType = "policy_check"
	EventTypeLLM           EventType = "llm"
	EventTypeResponse      EventType = "response"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	TurnID    string    `json:"turn_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging. Events go to stdout only in verbose
// mode; LLM exchanges are additionally appended to a rotating jsonl file.
type Logger struct {
	Verbose    bool
	TurnID     string
	llmLogPath string
	maxSize    int64
}

func NewLogger(verbose bool) *Logger {
	return &Logger{
		Verbose:    verbose,
		TurnID:     uuid.NewString(),
		llmLogPath: filepath.Join("logs", "llm.jsonl"),
		maxSize:    10 * 1024 * 1024, // 10MB
	}
}

// NewTurn assigns a fresh turn id for the next user query.
func (l *Logger) NewTurn() string {
	l.TurnID = uuid.NewString()
	return l.TurnID
}

// Log emits a structured JSON event.
func (l *Logger) Log(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	if evt.TurnID == "" {
		evt.TurnID = l.TurnID
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Printf("{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}
	if l.Verbose {
		fmt.Println(string(data))
	}

	if evt.Type == EventTypeLLM {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogPlan(description string, steps int, hash string) {
	l.Log(Event{
		Type: EventTypePlan,
		Data: map[string]any{
			"description": description,
			"steps":       steps,
			"hash":        hash,
		},
	})
}

func (l *Logger) LogStep(step int, status, detail string) {
	l.Log(Event{
		Type: EventTypeStep,
		Data: map[string]any{
			"step":   step,
			"status": status,
			"detail": detail,
		},
	})
}

func (l *Logger) LogToolCall(tool string, args map[string]any) {
	l.Log(Event{
		Type: EventTypeToolCall,
		Data: map[string]any{
			"tool": tool,
			"args": args,
		},
	})
}

func (l *Logger) LogRetry(step, attempt, max int, reason string) {
	l.Log(Event{
		Type: EventTypeRetry,
		Data: map[string]any{
			"step":    step,
			"attempt": attempt,
			"max":     max,
			"reason":  reason,
		},
	})
}

func (l *Logger) LogDuplicatePlan(hash string) {
	l.Log(Event{
		Type: EventTypeDuplicatePlan,
		Data: map[string]string{"hash": hash},
	})
}

func (l *Logger) LogIteration(iteration, max int, input string) {
	l.Log(Event{
		Type: EventTypeIteration,
		Data: map[string]any{
			"iteration": iteration,
			"max":       max,
			"input":     input,
		},
	})
}

func (l *Logger) LogLLM(prompt any, response string) {
	l.Log(Event{
		Type: EventTypeLLM,
		Data: map[string]any{
			"prompt":   prompt,
			"response": response,
		},
	})
}

func (l *Logger) LogResponse(response string) {
	l.Log(Event{
		Type: EventTypeResponse,
		Data: map[string]string{"response": response},
	})
}
