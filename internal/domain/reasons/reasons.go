// Package reasons explains a CO₂ estimate with a short, ordered list of
// human-readable drivers taken from the vehicle's feature row.
package reasons

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/okian/co2risk/internal/domain/model"
)

const (
	defaultMaxReasons = 3
	evalCostLimit     = 10_000
	rowVariable       = "row"
)

// Mode selects which rules apply. FULL enables the rules that depend on fuel
// consumption and fuel type.
type Mode string

// Supported modes.
const (
	Strict Mode = "STRICT"
	Full   Mode = "FULL"
)

// ParseMode accepts a mode name in any case. An empty string means STRICT.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case "", Strict:
		return Strict, nil
	case Full:
		return Full, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Reason is a triggered rule.
type Reason struct {
	RuleID  string
	Message string
}

type compiledRule struct {
	Rule
	prog cel.Program
}

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithRules replaces the built-in rule table.
func WithRules(rules []Rule) Option {
	return func(g *Generator) {
		if len(rules) > 0 {
			g.rules = append([]Rule(nil), rules...)
		}
	}
}

// WithMaxReasons caps the number of reasons returned.
func WithMaxReasons(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxReasons = n
		}
	}
}

// WithFallback sets the message returned when nothing triggers.
func WithFallback(msg string) Option {
	return func(g *Generator) {
		if strings.TrimSpace(msg) != "" {
			g.fallback = msg
		}
	}
}

// Generator evaluates an ordered rule table against feature rows. Rules are
// compiled once by New; a Generator is safe for concurrent use.
type Generator struct {
	rules      []Rule
	compiled   []compiledRule
	maxReasons int
	fallback   string
}

// New compiles the rule table and returns a ready Generator.
func New(opts ...Option) (*Generator, error) {
	g := &Generator{
		rules:      DefaultRules(),
		maxReasons: defaultMaxReasons,
		fallback:   FallbackMessage,
	}
	for _, opt := range opts {
		opt(g)
	}

	env, err := cel.NewEnv(
		cel.Variable(rowVariable, cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	sort.SliceStable(g.rules, func(i, j int) bool { return g.rules[i].Priority < g.rules[j].Priority })

	g.compiled = make([]compiledRule, 0, len(g.rules))
	for _, r := range g.rules {
		ast, issues := env.Compile(r.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCompileRule, r.ID, issues.Err())
		}
		prog, err := env.Program(ast, cel.CostLimit(evalCostLimit))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCompileRule, r.ID, err)
		}
		g.compiled = append(g.compiled, compiledRule{Rule: r, prog: prog})
	}
	return g, nil
}

// Evaluate returns every rule that triggers for row in priority order,
// without truncation or fallback. Absent or unusable fields never trigger.
func (g *Generator) Evaluate(row model.FeatureRow, mode Mode) []Reason {
	activation := map[string]any{rowVariable: row.Normalize()}

	var out []Reason
	for _, r := range g.compiled {
		if r.FullOnly && mode != Full {
			continue
		}
		val, _, err := r.prog.Eval(activation)
		if err != nil {
			continue
		}
		if matched, ok := val.Value().(bool); ok && matched {
			out = append(out, Reason{RuleID: r.ID, Message: r.Message})
		}
	}
	return out
}

// Generate returns between one and maxReasons messages for row, most
// important first.
func (g *Generator) Generate(row model.FeatureRow, mode Mode) []string {
	triggered := g.Evaluate(row, mode)
	if len(triggered) == 0 {
		return []string{g.fallback}
	}
	if len(triggered) > g.maxReasons {
		triggered = triggered[:g.maxReasons]
	}

	msgs := make([]string, len(triggered))
	for i, r := range triggered {
		msgs[i] = r.Message
	}
	return msgs
}

// Rules returns the rule table in evaluation order.
func (g *Generator) Rules() []Rule {
	return append([]Rule(nil), g.rules...)
}
