// Package command defines the structured commands a chat user can issue and
// decodes them from the intent recognizer's output.
//
// The recognizer emits loosely typed values ({type, opts}). Decode turns each one
// into a concrete variant carrying only the fields it needs, so the dispatcher
// never looks at raw option maps.
package command

import "errors"

// Type names a command kind as produced by the recognizer.
type Type string

const (
	TypeAuthenticate  Type = "Authenticate"
	TypeSay           Type = "Say"
	TypeUserSet       Type = "UserSet"
	TypeSet           Type = "Set"
	TypeGet           Type = "Get"
	TypeDump          Type = "Dump"
	TypeCommentTask   Type = "CommentTask"
	TypeCreateBauTask Type = "CreateBauTask"
	TypeCreateTask    Type = "CreateTask"
	TypeAssignTask    Type = "AssignTask"
	TypeUnassignTask  Type = "UnassignTask"
)

// ErrUnknownCommand is reported for command types the bot does not implement.
var ErrUnknownCommand = errors.New("unknown command")

// Command is one decoded user command. Implementations are immutable values.
type Command interface {
	Type() Type
}

// Authenticate starts the OAuth sign-in flow for the sending user.
type Authenticate struct{}

func (Authenticate) Type() Type { return TypeAuthenticate }

// Say echoes literal text back into the conversation.
type Say struct {
	Text string `mapstructure:"text" validate:"required"`
}

func (Say) Type() Type { return TypeSay }

// UserSet stores a per-user variable.
type UserSet struct {
	Variable string `mapstructure:"variable" validate:"required"`
	Value    any    `mapstructure:"value"`
}

func (UserSet) Type() Type { return TypeUserSet }

// Set stores a per-conversation variable.
type Set struct {
	Variable string `mapstructure:"variable" validate:"required"`
	Value    any    `mapstructure:"value"`
}

func (Set) Type() Type { return TypeSet }

// Get reads a per-conversation variable.
type Get struct {
	Variable string `mapstructure:"variable" validate:"required"`
}

func (Get) Type() Type { return TypeGet }

// Dump renders both data scopes of the session.
type Dump struct{}

func (Dump) Type() Type { return TypeDump }

// CommentTask adds a comment to an existing work item.
type CommentTask struct {
	Item    string `mapstructure:"item" validate:"required"`
	Comment string `mapstructure:"comment" validate:"required"`
}

func (CommentTask) Type() Type { return TypeCommentTask }

// CreateTask creates a work item. BAU marks business-as-usual tasks; the
// recognizer's CreateBauTask decodes into this variant with BAU set.
type CreateTask struct {
	BAU         bool   `mapstructure:"-"`
	Title       string `mapstructure:"title" validate:"required"`
	Description string `mapstructure:"description"`
}

func (c CreateTask) Type() Type {
	if c.BAU {
		return TypeCreateBauTask
	}
	return TypeCreateTask
}

// AssignTask sets the assignee of a work item.
type AssignTask struct {
	Item    string `mapstructure:"item" validate:"required"`
	Person  string `mapstructure:"person" validate:"required"`
	Comment string `mapstructure:"comment"`
}

func (AssignTask) Type() Type { return TypeAssignTask }

// UnassignTask clears the assignee of a work item.
type UnassignTask struct {
	Item    string `mapstructure:"item" validate:"required"`
	Comment string `mapstructure:"comment"`
}

func (UnassignTask) Type() Type { return TypeUnassignTask }

// Unknown is a command type the bot does not recognize.
type Unknown struct {
	Name string
}

func (u Unknown) Type() Type { return Type(u.Name) }

// Invalid is a known command whose options could not be decoded or validated.
type Invalid struct {
	Name Type
	Err  error
}

func (i Invalid) Type() Type { return i.Name }
