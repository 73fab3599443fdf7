package ai

import (
	"encoding/json"
	"regexp"
)

// TaskDraft is a task proposal produced by the model. Drafts are returned
// to the client verbatim; nothing is persisted until the client submits
// them through the task save endpoint.
type TaskDraft struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	TaskStatus  string `json:"taskStatus"`
	Assignee    string `json:"assignee"`
	Status      string `json:"status"`
}

// ChatResponse is the payload shape the model is asked to produce.
type ChatResponse struct {
	Message string      `json:"message"`
	Tasks   []TaskDraft `json:"tasks"`
}

var (
	unquotedKeys  = regexp.MustCompile(`(\w+):`)
	trailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// SafeParseTasks decodes model output into a ChatResponse. Models
// occasionally emit almost-JSON, so a strict parse failure triggers one
// repair pass quoting bare keys and stripping trailing commas. If the
// repaired text still does not parse, the raw text becomes the message and
// the task list stays empty.
func SafeParseTasks(raw string) ChatResponse {
	var out ChatResponse
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return normalized(out)
	}

	fixed := unquotedKeys.ReplaceAllString(raw, `"$1":`)
	fixed = trailingComma.ReplaceAllString(fixed, "$1")
	out = ChatResponse{}
	if err := json.Unmarshal([]byte(fixed), &out); err == nil {
		return normalized(out)
	}

	return ChatResponse{Message: raw, Tasks: []TaskDraft{}}
}

func normalized(r ChatResponse) ChatResponse {
	if r.Tasks == nil {
		r.Tasks = []TaskDraft{}
	}
	return r
}
