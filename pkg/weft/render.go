package weft

import (
	"strings"
)

// HintKind classifies a structural hint.
type HintKind int

const (
	// HintRemoveEnclosingBlock asks the format collaborator to remove the
	// markup block enclosing the hinted position. The core knows nothing
	// about native markup; it only signals intent.
	HintRemoveEnclosingBlock HintKind = iota
)

func (k HintKind) String() string {
	if k == HintRemoveEnclosingBlock {
		return "RemoveEnclosingBlock"
	}
	return "Unknown"
}

// StructuralHint is a signal for the collaborator format layer, emitted
// while rendering a content unit.
type StructuralHint struct {
	Kind     HintKind
	UnitID   string
	Position int
}

// NullGetter supplies the substitute text for unresolvable placeholders
// in lenient mode.
type NullGetter func() string

func defaultNullGetter() string { return "" }

// RenderOptions controls one renderer invocation.
type RenderOptions struct {
	// Strict escalates resolution and type failures to fatal errors
	// instead of substituting and recording.
	Strict bool
	// NullGetter provides lenient-mode substitutes; defaults to the
	// empty string.
	NullGetter NullGetter
	// UnitID tags emitted hints and error records.
	UnitID string
	// Collector receives recoverable diagnostics. Optional.
	Collector *ErrorCollector
}

// renderContext carries per-render state down the node tree. Loop
// iterations derive a child context with shadowed data; hints and
// options are shared across the whole render call.
type renderContext struct {
	data  TemplateData
	opts  RenderOptions
	hints *[]StructuralHint
}

func (rc *renderContext) withData(data TemplateData) *renderContext {
	return &renderContext{data: data, opts: rc.opts, hints: rc.hints}
}

func (rc *renderContext) record(err error) {
	if rc.opts.Collector != nil {
		rc.opts.Collector.AddError(err, rc.opts.UnitID, SeverityRecoverable)
	}
}

func (rc *renderContext) null() string {
	if rc.opts.NullGetter != nil {
		return rc.opts.NullGetter()
	}
	return defaultNullGetter()
}

func (rc *renderContext) addHint(kind HintKind, pos int) {
	*rc.hints = append(*rc.hints, StructuralHint{Kind: kind, UnitID: rc.opts.UnitID, Position: pos})
}

// RenderNodes evaluates a template tree against data and returns the
// output text plus any structural hints. In lenient mode it never fails;
// in strict mode the first resolution or type failure aborts with the
// underlying error.
func RenderNodes(nodes []Node, data TemplateData, opts RenderOptions) (string, []StructuralHint, error) {
	var hints []StructuralHint
	rc := &renderContext{data: data, opts: opts, hints: &hints}

	out, err := renderBody(nodes, rc)
	if err != nil {
		return "", hints, err
	}
	return out, hints, nil
}

func renderBody(nodes []Node, rc *renderContext) (string, error) {
	var b strings.Builder
	for _, node := range nodes {
		out, err := node.render(rc)
		if err != nil {
			return "", err
		}
		b.WriteString(out)
	}
	return b.String(), nil
}

func (n *TextNode) render(*renderContext) (string, error) {
	return n.Content, nil
}

func (n *PlaceholderNode) render(rc *renderContext) (string, error) {
	value, ok := Resolve(rc.data, n.Path)
	if !ok {
		err := &ResolutionError{Path: n.Path}
		if rc.opts.Strict {
			return "", err
		}
		rc.record(err)
		return rc.null(), nil
	}
	return FormatValue(value), nil
}

func (n *ParagraphPlaceholderNode) render(rc *renderContext) (string, error) {
	value, ok := Resolve(rc.data, n.Path)
	if !ok || isEmptyValue(value) {
		rc.addHint(HintRemoveEnclosingBlock, n.Pos)
		return "", nil
	}
	return FormatValue(value), nil
}

func (n *RawSpliceNode) render(rc *renderContext) (string, error) {
	// Raw splices are commonly optional: a missing path is an empty
	// splice even in strict mode. The resolved value is emitted
	// unescaped; well-formedness is the context producer's contract.
	value, ok := Resolve(rc.data, n.Path)
	if !ok {
		return "", nil
	}
	return FormatValue(value), nil
}

func (n *LoopNode) render(rc *renderContext) (string, error) {
	collection, ok := Resolve(rc.data, n.Path)
	if !ok {
		err := &TypeError{Path: n.Path, Message: "loop collection not found"}
		if rc.opts.Strict {
			return "", err
		}
		rc.record(err)
		return "", nil
	}

	items, err := toSequence(collection)
	if err != nil {
		typeErr := &TypeError{Path: n.Path, Message: "loop target is not a sequence"}
		if rc.opts.Strict {
			return "", typeErr
		}
		rc.record(typeErr)
		return "", nil
	}

	var b strings.Builder
	length := len(items)
	for i, item := range items {
		derived := shadow(rc.data, TemplateData{
			n.Var:         item,
			loopVarIndex:  i,
			loopVarFirst:  i == 0,
			loopVarLast:   i == length-1,
			loopVarLength: length,
		})
		out, err := renderBody(n.Body, rc.withData(derived))
		if err != nil {
			return "", err
		}
		b.WriteString(out)
	}
	return b.String(), nil
}

func (n *ConditionalNode) render(rc *renderContext) (string, error) {
	// Conditions never raise, even in strict mode: an expression that
	// cannot be evaluated is defined as not taken.
	if evalCondition(n.Expr, rc.data) {
		return renderBody(n.ThenBody, rc)
	}
	return renderBody(n.ElseBody, rc)
}

func (n *ModuleTagNode) render(*renderContext) (string, error) {
	// Module tags are opaque to the core renderer. Their raw text is
	// re-emitted so the owning module can substitute it during the
	// pipeline's render phase.
	return n.Raw, nil
}
