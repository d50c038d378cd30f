package streamdb

import (
	"strings"
	"time"

	"github.com/google/cel-go/cel"
)

// Filter wraps a compiled CEL program evaluated against decoded entries.
// When constructed from an empty expression, Eval always returns true.
type Filter struct {
	prog    cel.Program
	enabled bool
}

// NewFilter compiles a CEL expression over entry attributes:
// ms/seq (the id parts), length (field count), fields (pairwise
// field -> value map, values as strings), and now_ms.
func NewFilter(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("ms", cel.UintType),
		cel.Variable("seq", cel.UintType),
		cel.Variable("length", cel.IntType),
		cel.Variable("fields", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return Filter{}, err
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return Filter{}, iss.Err()
	}
	prog, err := env.Program(ast)
	if err != nil {
		return Filter{}, err
	}
	return Filter{prog: prog, enabled: true}, nil
}

// Eval evaluates the expression against one entry. Evaluation errors count
// as a non-match.
func (f Filter) Eval(e Entry) bool {
	if !f.enabled {
		return true
	}
	fields := make(map[string]string, len(e.Fields)/2)
	for i := 0; i+1 < len(e.Fields); i += 2 {
		fields[string(e.Fields[i])] = string(e.Fields[i+1])
	}
	out, _, err := f.prog.Eval(map[string]any{
		"ms":     e.ID.MS,
		"seq":    e.ID.Seq,
		"length": int64(len(e.Fields)),
		"fields": fields,
		"now_ms": time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
