package workitem

import (
	"context"
	"fmt"
	"strings"
)

// Field reference names used by the client.
const (
	FieldTitle       = "System.Title"
	FieldDescription = "System.Description"
	FieldTags        = "System.Tags"
	FieldHistory     = "System.History"
	FieldAssignedTo  = "System.AssignedTo"

	// TagBAU marks business-as-usual tasks.
	TagBAU = "BAU"
)

// Service is the work-item backend.
type Service interface {
	CreateTask(ctx context.Context, bau bool, title, description string) (*WorkItem, error)
	CommentTask(ctx context.Context, item, comment string) (*WorkItem, error)
	// AssignTask sets the assignee; an empty person clears it.
	AssignTask(ctx context.Context, item, person, comment string) (*WorkItem, error)
}

// WorkItem is the part of a work item the bot reads.
type WorkItem struct {
	ID     int            `json:"id"`
	Rev    int            `json:"rev,omitempty"`
	URL    string         `json:"url,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// AssignedTo renders the assignee. Older API versions return a display
// string, newer ones an identity object.
func (w *WorkItem) AssignedTo() string {
	if w == nil || w.Fields == nil {
		return ""
	}
	switch v := w.Fields[FieldAssignedTo].(type) {
	case string:
		return v
	case map[string]any:
		name, _ := v["displayName"].(string)
		unique, _ := v["uniqueName"].(string)
		switch {
		case name != "" && unique != "":
			return fmt.Sprintf("%s <%s>", name, unique)
		case name != "":
			return name
		default:
			return unique
		}
	default:
		return ""
	}
}

// ServiceError is a failed call to the work-item service.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "request failed"
	}
	if e.StatusCode == 0 {
		return msg
	}
	return fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
}
