package command

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Raw is a command exactly as the intent recognizer emits it.
type Raw struct {
	Type string         `json:"type"`
	Opts map[string]any `json:"opts,omitempty"`
}

// aliases maps alternative recognizer names onto canonical types.
var aliases = map[string]Type{
	"Unassign": TypeUnassignTask,
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeAll decodes an ordered list of raw commands. Order is preserved and
// decoding never fails as a whole: problems are carried by Unknown and Invalid
// variants so the dispatcher can report them in sequence.
func DecodeAll(raws []Raw) []Command {
	cmds := make([]Command, 0, len(raws))
	for _, raw := range raws {
		cmds = append(cmds, Decode(raw))
	}
	return cmds
}

// Decode converts a single raw command into its typed variant.
func Decode(raw Raw) Command {
	name := Type(strings.TrimSpace(raw.Type))
	if alias, ok := aliases[string(name)]; ok {
		name = alias
	}

	switch name {
	case TypeAuthenticate:
		return Authenticate{}
	case TypeDump:
		return Dump{}
	case TypeSay:
		return decodeInto(name, raw.Opts, &Say{})
	case TypeUserSet:
		return decodeInto(name, raw.Opts, &UserSet{})
	case TypeSet:
		return decodeInto(name, raw.Opts, &Set{})
	case TypeGet:
		return decodeInto(name, raw.Opts, &Get{})
	case TypeCommentTask:
		return decodeInto(name, raw.Opts, &CommentTask{})
	case TypeCreateTask:
		return decodeInto(name, raw.Opts, &CreateTask{})
	case TypeCreateBauTask:
		return decodeInto(name, raw.Opts, &CreateTask{BAU: true})
	case TypeAssignTask:
		return decodeInto(name, raw.Opts, &AssignTask{})
	case TypeUnassignTask:
		return decodeInto(name, raw.Opts, &UnassignTask{})
	default:
		return Unknown{Name: string(name)}
	}
}

// decodeInto fills target from opts and returns the dereferenced variant.
func decodeInto[T Command](name Type, opts map[string]any, target *T) Command {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Invalid{Name: name, Err: err}
	}
	if err := decoder.Decode(opts); err != nil {
		return Invalid{Name: name, Err: fmt.Errorf("invalid options: %w", err)}
	}
	if err := validate.Struct(target); err != nil {
		return Invalid{Name: name, Err: describeValidation(err)}
	}
	return *target
}

func describeValidation(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, strings.ToLower(fe.Field()))
	}
	return fmt.Errorf("missing %s", strings.Join(missing, ", "))
}
