package weft

import (
	"fmt"
	"strings"
)

// Node is one node of the parsed template tree. Rendering is driven by
// the renderer through the unexported render method; String exists for
// debugging and error messages.
type Node interface {
	String() string
	render(rc *renderContext) (string, error)
}

// TextNode represents plain text content.
type TextNode struct {
	Content string
}

func (n *TextNode) String() string {
	return fmt.Sprintf("Text(%q)", n.Content)
}

// PlaceholderNode represents a {{ path }} substitution.
type PlaceholderNode struct {
	Path string
	Pos  int
}

func (n *PlaceholderNode) String() string {
	return fmt.Sprintf("Placeholder(%s)", n.Path)
}

// ParagraphPlaceholderNode represents a {{? path }} substitution that
// signals block removal when its value is empty.
type ParagraphPlaceholderNode struct {
	Path string
	Pos  int
}

func (n *ParagraphPlaceholderNode) String() string {
	return fmt.Sprintf("ParagraphPlaceholder(%s)", n.Path)
}

// RawSpliceNode represents an {@ path } unescaped splice.
type RawSpliceNode struct {
	Path string
	Pos  int
}

func (n *RawSpliceNode) String() string {
	return fmt.Sprintf("RawSplice(%s)", n.Path)
}

// LoopNode represents a {% loop VAR in PATH %} ... {% endloop %} block.
// Body is fully nested; it is built exactly once and only re-evaluated
// per iteration.
type LoopNode struct {
	Var  string
	Path string
	Pos  int
	Body []Node
}

func (n *LoopNode) String() string {
	return fmt.Sprintf("Loop(%s in %s)", n.Var, n.Path)
}

// ConditionalNode represents {% if EXPR %} ... {% else %} ... {% endif %}.
type ConditionalNode struct {
	Expr     string
	Pos      int
	ThenBody []Node
	ElseBody []Node
}

func (n *ConditionalNode) String() string {
	if len(n.ElseBody) > 0 {
		return fmt.Sprintf("If(%s) Else", n.Expr)
	}
	return fmt.Sprintf("If(%s)", n.Expr)
}

// ModuleTagNode represents a {% name data %} tag owned by a pipeline
// module. The core renderer re-emits its raw text untouched; the owning
// module substitutes it during the pipeline's render phase.
type ModuleTagNode struct {
	Name string
	Data string
	Raw  string
	Pos  int
}

func (n *ModuleTagNode) String() string {
	return fmt.Sprintf("ModuleTag(%s)", n.Name)
}

// blockFrame is one open Loop or Conditional block on the builder stack.
type blockFrame struct {
	opener   Token
	body     []Node
	elseBody []Node
	inElse   bool
}

func (f *blockFrame) append(n Node) {
	if f.inElse {
		f.elseBody = append(f.elseBody, n)
	} else {
		f.body = append(f.body, n)
	}
}

// BuildTree builds a nested template tree from a token stream. Block
// structure is validated with an explicit stack of open frames: a stray
// else/endif/endloop, or an unterminated block at end of input, is a
// *SyntaxError carrying the offending token's byte position.
func BuildTree(tokens []Token) ([]Node, error) {
	var root []Node
	var stack []*blockFrame

	appendNode := func(n Node) {
		if len(stack) > 0 {
			stack[len(stack)-1].append(n)
		} else {
			root = append(root, n)
		}
	}

	for _, tok := range tokens {
		switch tok.Kind {
		case TokenText:
			if tok.Value != "" {
				appendNode(&TextNode{Content: tok.Value})
			}

		case TokenPlaceholder:
			appendNode(&PlaceholderNode{Path: tok.Value, Pos: tok.Start})

		case TokenParagraphPlaceholder:
			appendNode(&ParagraphPlaceholderNode{Path: tok.Value, Pos: tok.Start})

		case TokenRawSplice:
			appendNode(&RawSpliceNode{Path: tok.Value, Pos: tok.Start})

		case TokenModuleTag:
			appendNode(&ModuleTagNode{Name: tok.Name, Data: tok.Value, Raw: tok.Raw, Pos: tok.Start})

		case TokenLoopStart, TokenCondIf:
			stack = append(stack, &blockFrame{opener: tok})

		case TokenCondElse:
			if len(stack) == 0 {
				return nil, &SyntaxError{Message: "else without matching if", Position: tok.Start}
			}
			top := stack[len(stack)-1]
			if top.opener.Kind != TokenCondIf {
				return nil, &SyntaxError{Message: "else inside loop block", Position: tok.Start}
			}
			if top.inElse {
				return nil, &SyntaxError{Message: "duplicate else in if block", Position: tok.Start}
			}
			top.inElse = true

		case TokenCondEnd:
			if len(stack) == 0 {
				return nil, &SyntaxError{Message: "endif without matching if", Position: tok.Start}
			}
			top := stack[len(stack)-1]
			if top.opener.Kind != TokenCondIf {
				return nil, &SyntaxError{Message: "endif closes a loop block", Position: tok.Start}
			}
			stack = stack[:len(stack)-1]
			appendNode(&ConditionalNode{
				Expr:     top.opener.Value,
				Pos:      top.opener.Start,
				ThenBody: top.body,
				ElseBody: top.elseBody,
			})

		case TokenLoopEnd:
			if len(stack) == 0 {
				return nil, &SyntaxError{Message: "endloop without matching loop", Position: tok.Start}
			}
			top := stack[len(stack)-1]
			if top.opener.Kind != TokenLoopStart {
				return nil, &SyntaxError{Message: "endloop closes an if block", Position: tok.Start}
			}
			stack = stack[:len(stack)-1]
			appendNode(&LoopNode{
				Var:  top.opener.Var,
				Path: top.opener.Value,
				Pos:  top.opener.Start,
				Body: top.body,
			})

		default:
			return nil, &SyntaxError{Message: fmt.Sprintf("unexpected token kind %s", tok.Kind), Position: tok.Start}
		}
	}

	if len(stack) > 0 {
		top := stack[len(stack)-1]
		kind := "loop"
		if top.opener.Kind == TokenCondIf {
			kind = "if"
		}
		return nil, &SyntaxError{
			Message:  fmt.Sprintf("unterminated %s block", kind),
			Position: top.opener.Start,
		}
	}

	return root, nil
}

// Parse tokenizes input and builds its template tree in one step.
func Parse(input string) ([]Node, error) {
	return BuildTree(Tokenize(input))
}

// FlattenTree renders a tree back to a debug string, one node per line.
func FlattenTree(nodes []Node) string {
	var b strings.Builder
	var walk func(nodes []Node, depth int)
	walk = func(nodes []Node, depth int) {
		for _, n := range nodes {
			b.WriteString(strings.Repeat("  ", depth))
			b.WriteString(n.String())
			b.WriteString("\n")
			switch t := n.(type) {
			case *LoopNode:
				walk(t.Body, depth+1)
			case *ConditionalNode:
				walk(t.ThenBody, depth+1)
				if len(t.ElseBody) > 0 {
					walk(t.ElseBody, depth+1)
				}
			}
		}
	}
	walk(nodes, 0)
	return b.String()
}
