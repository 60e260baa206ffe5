// Package dispatch executes the commands of one inbound message.
//
// Commands run in order. Authenticate starts the sign-in flow and ends the
// message; any other command ends the message with a notice when the user
// has no stored profile. Work-item commands are sent to the work-item
// service concurrently and Dispatch returns once all of them have answered.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"taskbot/internal/command"
	"taskbot/internal/conversation"
	"taskbot/internal/messages"
	"taskbot/internal/workitem"
	"taskbot/pkg/logging"
)

// ErrUnauthenticated is returned when a message was cut short because the
// user has not authenticated.
var ErrUnauthenticated = errors.New("user is not authenticated")

var errNoWorkItems = errors.New("work items are not configured")

// undefined is shown for values that were never set.
const undefined = "undefined"

// Authenticator starts the sign-in flow for a turn's user.
type Authenticator interface {
	StartAuthentication(ctx context.Context, turn *conversation.Turn) error
}

// Observer is told about every command handled.
type Observer interface {
	CommandHandled(commandType string)
}

// Dispatcher routes commands to their effects.
type Dispatcher struct {
	auth     Authenticator
	items    workitem.Service
	messages *messages.Catalogue
	observer Observer
}

// New creates a dispatcher. items may be nil, in which case work-item
// commands fail with a message to the user.
func New(auth Authenticator, items workitem.Service, catalogue *messages.Catalogue, observer Observer) *Dispatcher {
	if catalogue == nil {
		catalogue = messages.Default()
	}
	return &Dispatcher{auth: auth, items: items, messages: catalogue, observer: observer}
}

// Dispatch runs cmds against turn. The turn's messenger must be safe for
// concurrent use.
func (d *Dispatcher) Dispatch(ctx context.Context, turn *conversation.Turn, cmds []command.Command) error {
	var g errgroup.Group
	defer g.Wait()

	for _, cmd := range cmds {
		d.observe(cmd)

		if _, ok := cmd.(command.Authenticate); ok {
			if err := d.auth.StartAuthentication(ctx, turn); err != nil {
				return fmt.Errorf("failed to start authentication: %w", err)
			}
			break
		}

		if !turn.Session.Authenticated() {
			d.reply(ctx, turn, d.messages.Render(messages.Unauthenticated, nil))
			return ErrUnauthenticated
		}

		if err := d.execute(ctx, turn, cmd, &g); err != nil {
			return err
		}
	}

	return g.Wait()
}

func (d *Dispatcher) execute(ctx context.Context, turn *conversation.Turn, cmd command.Command, g *errgroup.Group) error {
	switch c := cmd.(type) {
	case command.Say:
		d.reply(ctx, turn, c.Text)

	case command.UserSet:
		prev, ok := turn.Session.SetUserValue(c.Variable, c.Value)
		d.reply(ctx, turn, d.messages.Render(messages.ValueSaved, map[string]string{
			"Variable": c.Variable,
			"Previous": display(prev, ok),
		}))

	case command.Set:
		prev, ok := turn.Session.SetConversationValue(c.Variable, c.Value)
		if err := turn.Session.Save(ctx); err != nil {
			return fmt.Errorf("failed to save conversation data: %w", err)
		}
		d.reply(ctx, turn, d.messages.Render(messages.ValueSaved, map[string]string{
			"Variable": c.Variable,
			"Previous": display(prev, ok),
		}))

	case command.Get:
		v, ok := turn.Session.ConversationValue(c.Variable)
		d.reply(ctx, turn, d.messages.Render(messages.ValueGet, map[string]string{
			"Variable": c.Variable,
			"Value":    display(v, ok),
		}))

	case command.Dump:
		d.dump(ctx, turn)

	case command.CommentTask:
		d.delegate(ctx, turn, g, func(ctx context.Context) (*workitem.WorkItem, error) {
			return d.items.CommentTask(ctx, c.Item, c.Comment)
		}, messages.Commented, messages.CommentFailed)

	case command.CreateTask:
		d.delegate(ctx, turn, g, func(ctx context.Context) (*workitem.WorkItem, error) {
			return d.items.CreateTask(ctx, c.BAU, c.Title, c.Description)
		}, messages.Created, messages.CreateFailed)

	case command.AssignTask:
		d.delegate(ctx, turn, g, func(ctx context.Context) (*workitem.WorkItem, error) {
			return d.items.AssignTask(ctx, c.Item, c.Person, c.Comment)
		}, messages.Assigned, messages.AssignFailed)

	case command.UnassignTask:
		d.delegate(ctx, turn, g, func(ctx context.Context) (*workitem.WorkItem, error) {
			return d.items.AssignTask(ctx, c.Item, "", c.Comment)
		}, messages.Unassigned, messages.UnassignFailed)

	case command.Invalid:
		logging.Debug("Dispatch", "Invalid %s command: %v", c.Name, c.Err)
		d.reply(ctx, turn, d.messages.Render(messages.InvalidCommand, map[string]string{
			"Command": string(c.Name),
			"Error":   c.Err.Error(),
		}))

	default:
		logging.Debug("Dispatch", "Unknown command %q: %v", cmd.Type(), command.ErrUnknownCommand)
		d.reply(ctx, turn, d.messages.Render(messages.UnknownCommand, nil))
	}
	return nil
}

// delegate runs call in the group and reports its result to the user.
func (d *Dispatcher) delegate(ctx context.Context, turn *conversation.Turn, g *errgroup.Group,
	call func(context.Context) (*workitem.WorkItem, error), okKey, failKey messages.Key) {
	g.Go(func() error {
		if d.items == nil {
			d.reply(ctx, turn, d.messages.Render(failKey, map[string]string{"Error": errNoWorkItems.Error()}))
			return nil
		}

		wi, err := call(ctx)
		if err != nil {
			logging.Warn("Dispatch", "Work item call failed: %v", err)
			d.reply(ctx, turn, d.messages.Render(failKey, map[string]string{"Error": err.Error()}))
			return nil
		}
		d.reply(ctx, turn, d.messages.Render(okKey, map[string]string{
			"ID":       fmt.Sprint(wi.ID),
			"Assignee": wi.AssignedTo(),
		}))
		return nil
	})
}

func (d *Dispatcher) dump(ctx context.Context, turn *conversation.Turn) {
	userData := turn.Session.User.Data.Clone()
	if turn.Session.User.Profile != nil {
		userData["authenticatedProfile"] = turn.Session.User.Profile
	}
	d.reply(ctx, turn, d.messages.Render(messages.DumpUser, map[string]string{"JSON": toJSON(userData)}))
	d.reply(ctx, turn, d.messages.Render(messages.DumpConversation, map[string]string{"JSON": toJSON(turn.Session.Conversation)}))
}

func (d *Dispatcher) reply(ctx context.Context, turn *conversation.Turn, text string) {
	if err := turn.Reply(ctx, text); err != nil {
		logging.Error("Dispatch", err, "Failed to send reply to conversation=%s", turn.Address.ConversationID())
	}
}

func (d *Dispatcher) observe(cmd command.Command) {
	if d.observer == nil {
		return
	}
	name := string(cmd.Type())
	switch cmd.(type) {
	case command.Unknown:
		name = "Unknown"
	case command.Invalid:
		name = "Invalid"
	}
	d.observer.CommandHandled(name)
}

// display renders a stored value the way users see it.
func display(v any, ok bool) string {
	if !ok || v == nil {
		return undefined
	}
	if s, isString := v.(string); isString {
		return s
	}
	return toJSON(v)
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
