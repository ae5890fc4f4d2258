// Package rosmsg parses ROS message, service and action definition files and
// serves their field layouts to the schema decoder.
package rosmsg

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"

	"github.com/alfredjeanlab/appreg/internal/schema"
)

// separator splits the sections of .srv and .action files.
const separator = "---"

var (
	fieldNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)
	typeNamePattern  = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*(/[a-zA-Z][a-zA-Z0-9_]*)?(\[[0-9]*\])*$`)
)

// MsgSpec is the parsed layout of one message type.
type MsgSpec struct {
	// Name is the fully qualified type name, e.g. "std_msgs/Header".
	Name      string
	Fields    []schema.Field
	Constants []Constant
}

// Constant is a named constant declared in a definition. Constants are part
// of the type but never of its field layout.
type Constant struct {
	Type  string
	Name  string
	Value string
}

// ParseError reports a malformed definition line.
type ParseError struct {
	Type string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Type, e.Line, e.Msg)
}

// ParseMessage parses the text of a .msg file for type pkg/name.
func ParseMessage(pkg, name, text string) (*MsgSpec, error) {
	sections, err := parseSections(pkg, pkg+"/"+name, text, 1)
	if err != nil {
		return nil, err
	}
	sections[0].Name = pkg + "/" + name
	return sections[0], nil
}

// ParseService parses the text of a .srv file into its request and response
// messages, named <name>Request and <name>Response.
func ParseService(pkg, name, text string) (request, response *MsgSpec, err error) {
	sections, err := parseSections(pkg, pkg+"/"+name, text, 2)
	if err != nil {
		return nil, nil, err
	}
	sections[0].Name = pkg + "/" + name + "Request"
	sections[1].Name = pkg + "/" + name + "Response"
	return sections[0], sections[1], nil
}

// ParseAction parses the text of a .action file. It returns the goal, result
// and feedback messages together with the generated wrapper messages
// <name>Action, <name>ActionGoal, <name>ActionResult and <name>ActionFeedback.
func ParseAction(pkg, name, text string) ([]*MsgSpec, error) {
	sections, err := parseSections(pkg, pkg+"/"+name, text, 3)
	if err != nil {
		return nil, err
	}
	base := pkg + "/" + name
	goal, result, feedback := sections[0], sections[1], sections[2]
	goal.Name = base + "Goal"
	result.Name = base + "Result"
	feedback.Name = base + "Feedback"

	actionGoal := &MsgSpec{
		Name: base + "ActionGoal",
		Fields: []schema.Field{
			{Name: "header", Type: "std_msgs/Header"},
			{Name: "goal_id", Type: "actionlib_msgs/GoalID"},
			{Name: "goal", Type: goal.Name},
		},
	}
	actionResult := &MsgSpec{
		Name: base + "ActionResult",
		Fields: []schema.Field{
			{Name: "header", Type: "std_msgs/Header"},
			{Name: "status", Type: "actionlib_msgs/GoalStatus"},
			{Name: "result", Type: result.Name},
		},
	}
	actionFeedback := &MsgSpec{
		Name: base + "ActionFeedback",
		Fields: []schema.Field{
			{Name: "header", Type: "std_msgs/Header"},
			{Name: "status", Type: "actionlib_msgs/GoalStatus"},
			{Name: "feedback", Type: feedback.Name},
		},
	}
	action := &MsgSpec{
		Name: base + "Action",
		Fields: []schema.Field{
			{Name: "action_goal", Type: actionGoal.Name},
			{Name: "action_result", Type: actionResult.Name},
			{Name: "action_feedback", Type: actionFeedback.Name},
		},
	}
	return []*MsgSpec{goal, result, feedback, action, actionGoal, actionResult, actionFeedback}, nil
}

// parseSections parses text into exactly want sections split by "---".
func parseSections(pkg, typeName, text string, want int) ([]*MsgSpec, error) {
	sections := []*MsgSpec{{}}
	scanner := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == separator {
			sections = append(sections, &MsgSpec{})
			continue
		}
		cur := sections[len(sections)-1]
		if err := parseLine(pkg, line, cur); err != nil {
			return nil, &ParseError{Type: typeName, Line: lineNo, Msg: err.Error()}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", typeName, err)
	}
	if len(sections) != want {
		return nil, &ParseError{
			Type: typeName,
			Line: lineNo,
			Msg:  fmt.Sprintf("expected %d section(s), found %d", want, len(sections)),
		}
	}
	return sections, nil
}

// parseLine adds the field or constant declared on line to spec.
func parseLine(pkg, line string, spec *MsgSpec) error {
	// String constants keep everything after '=' verbatim, including '#'.
	decl := line
	if i := strings.Index(decl, "#"); i >= 0 && !isStringConstant(decl) {
		decl = decl[:i]
	}
	decl = strings.TrimSpace(decl)
	if decl == "" {
		return nil
	}

	parts := strings.Fields(decl)
	if len(parts) < 2 {
		return fmt.Errorf("expected \"type name\", got %q", decl)
	}
	typ := parts[0]
	rest := strings.TrimSpace(decl[len(typ):])
	if !typeNamePattern.MatchString(typ) {
		return fmt.Errorf("invalid type %q", typ)
	}

	if name, value, isConst := strings.Cut(rest, "="); isConst {
		name = strings.TrimSpace(name)
		if !schema.IsPrimitiveType(typ) {
			return fmt.Errorf("constant %s must have a primitive type, got %q", name, typ)
		}
		if !fieldNamePattern.MatchString(name) {
			return fmt.Errorf("invalid constant name %q", name)
		}
		if typ == "string" {
			value = strings.TrimLeft(value, " \t")
		} else {
			value = strings.TrimSpace(value)
		}
		spec.Constants = append(spec.Constants, Constant{Type: typ, Name: name, Value: value})
		return nil
	}

	if !fieldNamePattern.MatchString(rest) {
		return fmt.Errorf("invalid field name %q", rest)
	}
	spec.Fields = append(spec.Fields, schema.Field{Name: rest, Type: ResolveType(pkg, typ)})
	return nil
}

func isStringConstant(line string) bool {
	typ, rest, ok := strings.Cut(line, " ")
	if !ok || typ != "string" {
		return false
	}
	eq := strings.Index(rest, "=")
	hash := strings.Index(rest, "#")
	return eq >= 0 && (hash < 0 || eq < hash)
}

// ResolveType qualifies a field type declared inside package pkg. Builtin
// types are returned unchanged, "Header" maps to "std_msgs/Header" and other
// bare names are placed in pkg. Array suffixes are preserved.
func ResolveType(pkg, typ string) string {
	base, suffix := typ, ""
	if i := strings.Index(typ, "["); i >= 0 {
		base, suffix = typ[:i], typ[i:]
	}
	switch {
	case schema.IsPrimitiveType(base), schema.IsTimeType(base):
		return typ
	case base == "Header":
		return "std_msgs/Header" + suffix
	case strings.Contains(base, "/"):
		return typ
	default:
		return pkg + "/" + base + suffix
	}
}
