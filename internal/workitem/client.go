package workitem

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"taskbot/pkg/logging"
)

const (
	apiVersion       = "7.0"
	patchContentType = "application/json-patch+json"
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 4 << 20
)

// Observer is told about every call made to the service.
type Observer interface {
	ObserveCall(operation string, duration time.Duration, err error)
}

// Config configures the REST client.
type Config struct {
	// OrganizationURL is e.g. https://dev.azure.com/contoso.
	OrganizationURL string
	Project         string
	// Token is a personal access token with work item read/write scope.
	Token    string
	Timeout  time.Duration
	Observer Observer
}

// Client talks to the Azure DevOps work item tracking REST API.
type Client struct {
	base     *url.URL
	project  string
	token    string
	http     *http.Client
	observer Observer
}

// NewClient creates a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.OrganizationURL == "" {
		return nil, errors.New("work item organization URL is required")
	}
	if cfg.Project == "" {
		return nil, errors.New("work item project is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.OrganizationURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid organization URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		base:     base,
		project:  cfg.Project,
		token:    cfg.Token,
		http:     &http.Client{Timeout: cfg.Timeout},
		observer: cfg.Observer,
	}, nil
}

type patchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

func addField(name string, value any) patchOp {
	return patchOp{Op: "add", Path: "/fields/" + name, Value: value}
}

// CreateTask creates a Task, tagged BAU when bau is set.
func (c *Client) CreateTask(ctx context.Context, bau bool, title, description string) (*WorkItem, error) {
	ops := []patchOp{addField(FieldTitle, title)}
	if description != "" {
		ops = append(ops, addField(FieldDescription, description))
	}
	if bau {
		ops = append(ops, addField(FieldTags, TagBAU))
	}

	endpoint := c.base.JoinPath(c.project, "_apis", "wit", "workitems", "$Task")
	return c.do(ctx, "create", http.MethodPost, endpoint, ops)
}

// CommentTask appends comment to the item's discussion.
func (c *Client) CommentTask(ctx context.Context, item, comment string) (*WorkItem, error) {
	endpoint, err := c.itemURL(item)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, "comment", http.MethodPatch, endpoint, []patchOp{addField(FieldHistory, comment)})
}

// AssignTask changes the item's assignee and records comment, if any.
func (c *Client) AssignTask(ctx context.Context, item, person, comment string) (*WorkItem, error) {
	endpoint, err := c.itemURL(item)
	if err != nil {
		return nil, err
	}
	ops := []patchOp{addField(FieldAssignedTo, person)}
	if comment != "" {
		ops = append(ops, addField(FieldHistory, comment))
	}

	op := "assign"
	if person == "" {
		op = "unassign"
	}
	return c.do(ctx, op, http.MethodPatch, endpoint, ops)
}

func (c *Client) itemURL(item string) (*url.URL, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(item), "#"))
	if err != nil || id <= 0 {
		return nil, &ServiceError{Message: fmt.Sprintf("invalid work item id %q", item)}
	}
	return c.base.JoinPath(c.project, "_apis", "wit", "workitems", strconv.Itoa(id)), nil
}

func (c *Client) do(ctx context.Context, operation, method string, endpoint *url.URL, ops []patchOp) (wi *WorkItem, err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveCall(operation, time.Since(start), err)
		}
	}()

	q := endpoint.Query()
	q.Set("api-version", apiVersion)
	endpoint.RawQuery = q.Encode()

	body, err := json.Marshal(ops)
	if err != nil {
		return nil, fmt.Errorf("failed to encode patch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", patchContentType)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.SetBasicAuth("", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ServiceError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logging.Debug("WorkItem", "%s %s failed: status=%d", method, endpoint.Path, resp.StatusCode)
		return nil, &ServiceError{StatusCode: resp.StatusCode, Message: errorMessage(raw, resp.Status)}
	}

	wi = &WorkItem{}
	if err := json.Unmarshal(raw, wi); err != nil {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", err)}
	}
	logging.Debug("WorkItem", "%s work item #%d", operation, wi.ID)
	return wi, nil
}

func errorMessage(body []byte, status string) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return status
}
