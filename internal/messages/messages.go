// Package messages holds every user-visible text the bot sends.
//
// Texts are text/template templates with the sprig function set, so a
// deployment can reword them from configuration without a rebuild.
package messages

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"taskbot/pkg/logging"
)

// Key names one message.
type Key string

const (
	WrongCallback    Key = "wrongCallback"
	CallbackAck      Key = "callbackAck"
	GroupNotice      Key = "groupNotice"
	SigninText       Key = "signinText"
	SigninButton     Key = "signinButton"
	Authenticated    Key = "authenticated"
	AccessDenied     Key = "accessDenied"
	AuthFailed       Key = "authFailed"
	Unauthenticated  Key = "unauthenticated"
	ValueSaved       Key = "valueSaved"
	ValueGet         Key = "valueGet"
	DumpUser         Key = "dumpUser"
	DumpConversation Key = "dumpConversation"
	Commented        Key = "commented"
	CommentFailed    Key = "commentFailed"
	Created          Key = "created"
	CreateFailed     Key = "createFailed"
	Assigned         Key = "assigned"
	AssignFailed     Key = "assignFailed"
	Unassigned       Key = "unassigned"
	UnassignFailed   Key = "unassignFailed"
	UnknownCommand   Key = "unknownCommand"
	InvalidCommand   Key = "invalidCommand"
)

var defaults = map[Key]string{
	WrongCallback:    "Wrong callback",
	CallbackAck:      "Thank you, I will now check if you have access. You can close this tab",
	GroupNotice:      "Ok, let's take 1:1",
	SigninText:       "Please authenticate yourself against VSO",
	SigninButton:     "Go to VSO",
	Authenticated:    "Authenticated as {{ .Email }} {{ .Name }}",
	AccessDenied:     "Sorry, appears that your VSO profile {{ .Email }} {{ .Name }} should not have access",
	AuthFailed:       "Authentication failed: {{ .Error }}",
	Unauthenticated:  "Sorry, I don't know you. Use command 'authenticate' first",
	ValueSaved:       "New value for '{{ .Variable }}' saved. Previous was {{ .Previous }}",
	ValueGet:         "{{ .Variable }} = {{ .Value }}",
	DumpUser:         "userData: {{ .JSON }}",
	DumpConversation: "conversationData: {{ .JSON }}",
	Commented:        "Comment was added to item #{{ .ID }}",
	CommentFailed:    "Cannot comment item: {{ .Error }}",
	Created:          "Sure, created task #{{ .ID }}",
	CreateFailed:     "Cannot create task: {{ .Error }}",
	Assigned:         "Assigned to {{ .Assignee | default \"nobody\" }}",
	AssignFailed:     "Cannot assign task: {{ .Error }}",
	Unassigned:       "Ok, unassigned",
	UnassignFailed:   "Cannot unassign task: {{ .Error }}",
	UnknownCommand:   "Unknown command",
	InvalidCommand:   "Cannot run {{ .Command }}: {{ .Error }}",
}

// Keys returns every known key in sorted order.
func Keys() []Key {
	keys := make([]Key, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// DefaultText returns the built-in template for key.
func DefaultText(key Key) string { return defaults[key] }

// Catalogue renders messages. It is safe for concurrent use; Update swaps
// the overrides while the bot is running.
type Catalogue struct {
	mu        sync.RWMutex
	templates map[Key]*template.Template
}

// New builds a catalogue from the defaults and the given overrides, keyed
// by message key.
func New(overrides map[string]string) (*Catalogue, error) {
	c := &Catalogue{}
	if err := c.Update(overrides); err != nil {
		return nil, err
	}
	return c, nil
}

// Default returns a catalogue without overrides.
func Default() *Catalogue {
	c, err := New(nil)
	if err != nil {
		panic(fmt.Sprintf("default messages do not parse: %v", err))
	}
	return c
}

// Update replaces the overrides. Nothing changes when any override fails
// to parse or names an unknown key.
func (c *Catalogue) Update(overrides map[string]string) error {
	templates := make(map[Key]*template.Template, len(defaults))
	for key, text := range defaults {
		tmpl, err := parse(key, text)
		if err != nil {
			return err
		}
		templates[key] = tmpl
	}

	var unknown []string
	for name, text := range overrides {
		key := Key(name)
		if _, ok := defaults[key]; !ok {
			unknown = append(unknown, name)
			continue
		}
		tmpl, err := parse(key, text)
		if err != nil {
			return err
		}
		templates[key] = tmpl
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown message keys: %s", strings.Join(unknown, ", "))
	}

	c.mu.Lock()
	c.templates = templates
	c.mu.Unlock()
	return nil
}

func parse(key Key, text string) (*template.Template, error) {
	tmpl, err := template.New(string(key)).Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message %q: %w", key, err)
	}
	return tmpl, nil
}

// Render executes the message template for key with data. A template that
// fails at execution time falls back to the built-in text.
func (c *Catalogue) Render(key Key, data any) string {
	c.mu.RLock()
	tmpl, ok := c.templates[key]
	c.mu.RUnlock()
	if !ok {
		logging.Warn("Messages", "No message registered for key=%s", key)
		return string(key)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		logging.Error("Messages", err, "Failed to render message key=%s", key)
		fallback, perr := parse(key, defaults[key])
		if perr != nil {
			return string(key)
		}
		sb.Reset()
		if err := fallback.Execute(&sb, data); err != nil {
			return string(key)
		}
	}
	return sb.String()
}
