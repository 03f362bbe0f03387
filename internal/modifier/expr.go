package modifier

import (
	"fmt"
	"strings"
)

type stepKind uint8

const (
	stepName stepKind = iota
	stepGroup
	stepModifier
)

// step is one '^'-separated token of an expression.
type step struct {
	kind stepKind
	// text is the unescaped file name for stepName and the raw token,
	// escapes included, for stepModifier.
	text  string
	group *Expr
}

// Expr is a parsed texture expression. Steps are applied left to right,
// each one to the image produced by the steps before it.
type Expr struct {
	Source string
	steps  []step
}

// Parse builds the expression tree for s.
func Parse(s string) (*Expr, error) {
	return parse(s, 0)
}

func parse(s string, depth int) (*Expr, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrInvalidExpression, maxDepth)
	}
	toks, err := splitTopLevel(s, separator)
	if err != nil {
		return nil, err
	}
	x := &Expr{Source: s, steps: make([]step, 0, len(toks))}
	for _, tok := range toks {
		switch {
		case tok == "":
			continue
		case isGroup(tok):
			inner, err := parse(tok[1:len(tok)-1], depth+1)
			if err != nil {
				return nil, err
			}
			x.steps = append(x.steps, step{kind: stepGroup, text: tok, group: inner})
		case tok[0] == '[':
			x.steps = append(x.steps, step{kind: stepModifier, text: tok})
		case tok[0] == parenOpen:
			return nil, fmt.Errorf("%w: malformed group %q", ErrInvalidExpression, tok)
		default:
			x.steps = append(x.steps, step{kind: stepName, text: unescape(tok)})
		}
	}
	return x, nil
}

// String renders the tree for debugging.
func (x *Expr) String() string {
	var b strings.Builder
	x.write(&b)
	return b.String()
}

func (x *Expr) write(b *strings.Builder) {
	for i, s := range x.steps {
		if i > 0 {
			b.WriteString(" ^ ")
		}
		switch s.kind {
		case stepName:
			fmt.Fprintf(b, "name(%s)", s.text)
		case stepGroup:
			b.WriteString("group(")
			s.group.write(b)
			b.WriteString(")")
		case stepModifier:
			fmt.Fprintf(b, "mod(%s)", s.text)
		}
	}
}
