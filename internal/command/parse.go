package command

import "strings"

// lineVerbs maps console verbs to recognizer command types.
var lineVerbs = map[string]Type{
	"authenticate": TypeAuthenticate,
	"auth":         TypeAuthenticate,
	"login":        TypeAuthenticate,
	"say":          TypeSay,
	"userset":      TypeUserSet,
	"uset":         TypeUserSet,
	"set":          TypeSet,
	"get":          TypeGet,
	"dump":         TypeDump,
	"comment":      TypeCommentTask,
	"create":       TypeCreateTask,
	"createbau":    TypeCreateBauTask,
	"bau":          TypeCreateBauTask,
	"assign":       TypeAssignTask,
	"unassign":     TypeUnassignTask,
}

// ParseLine is the console's stand-in for the intent recognizer. Commands are
// separated by ';' and take positional arguments; the last argument of each
// verb swallows the rest of the segment:
//
//	say hello there; set color blue; get color
//	create Fix login page -- users see a blank screen
//	assign 42 alice@example.com taking this over
//
// Unrecognized verbs are passed through verbatim so they surface as unknown
// commands.
func ParseLine(line string) []Raw {
	var raws []Raw
	for _, segment := range strings.Split(line, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		raws = append(raws, parseSegment(segment))
	}
	return raws
}

func parseSegment(segment string) Raw {
	verb, rest := cut(segment)
	typ, ok := lineVerbs[strings.ToLower(verb)]
	if !ok {
		return Raw{Type: verb}
	}

	raw := Raw{Type: string(typ), Opts: map[string]any{}}
	switch typ {
	case TypeSay:
		raw.Opts["text"] = rest
	case TypeUserSet, TypeSet:
		variable, value := cut(rest)
		raw.Opts["variable"] = variable
		raw.Opts["value"] = value
	case TypeGet:
		raw.Opts["variable"] = rest
	case TypeCommentTask:
		item, comment := cut(rest)
		raw.Opts["item"] = item
		raw.Opts["comment"] = comment
	case TypeCreateTask, TypeCreateBauTask:
		title, description, _ := strings.Cut(rest, "--")
		raw.Opts["title"] = strings.TrimSpace(title)
		raw.Opts["description"] = strings.TrimSpace(description)
	case TypeAssignTask:
		item, tail := cut(rest)
		person, comment := cut(tail)
		raw.Opts["item"] = item
		raw.Opts["person"] = person
		raw.Opts["comment"] = comment
	case TypeUnassignTask:
		item, comment := cut(rest)
		raw.Opts["item"] = item
		raw.Opts["comment"] = comment
	}
	return raw
}

// cut splits off the first whitespace-delimited word.
func cut(s string) (string, string) {
	s = strings.TrimSpace(s)
	head, tail, _ := strings.Cut(s, " ")
	return head, strings.TrimSpace(tail)
}
