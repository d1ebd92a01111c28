package weft

import (
	"strings"
)

// TokenKind represents the type of a template token.
type TokenKind int

const (
	TokenText TokenKind = iota
	TokenPlaceholder
	TokenParagraphPlaceholder
	TokenRawSplice
	TokenLoopStart
	TokenLoopEnd
	TokenCondIf
	TokenCondElse
	TokenCondEnd
	TokenModuleTag
)

func (k TokenKind) String() string {
	switch k {
	case TokenText:
		return "Text"
	case TokenPlaceholder:
		return "Placeholder"
	case TokenParagraphPlaceholder:
		return "ParagraphPlaceholder"
	case TokenRawSplice:
		return "RawSplice"
	case TokenLoopStart:
		return "LoopStart"
	case TokenLoopEnd:
		return "LoopEnd"
	case TokenCondIf:
		return "CondIf"
	case TokenCondElse:
		return "CondElse"
	case TokenCondEnd:
		return "CondEnd"
	case TokenModuleTag:
		return "ModuleTag"
	}
	return "Unknown"
}

// Token represents one parsed template token. Start and End are byte
// offsets into the original input; Raw is the exact source slice, so the
// concatenation of Raw over a token stream reconstructs the input.
type Token struct {
	Kind  TokenKind
	Start int
	End   int
	Raw   string
	// Value holds the path for placeholder/splice tokens, the collection
	// path for LoopStart, the expression for CondIf, and the data string
	// for ModuleTag.
	Value string
	// Var is the iteration variable name for LoopStart tokens.
	Var string
	// Name is the module name for ModuleTag tokens.
	Name string
}

// The five tag syntaxes, in the fixed priority order they are tried at
// each cursor position. The raw splice closes with a single brace.
const (
	openRawSplice   = "{@"
	openParagraph   = "{{?"
	openPercent     = "{%"
	openPlaceholder = "{{"

	closeRawSplice   = "}"
	closeDouble      = "}}"
	closePercent     = "%}"
)

// Tokenize scans input left to right and returns an ordered, gap-free
// token stream. It is total: malformed or unclosed tags degrade to text
// rather than producing an error.
func Tokenize(input string) []Token {
	var tokens []Token
	pos := 0

	for pos < len(input) {
		tagStart := nextOpenDelimiter(input, pos)
		if tagStart == -1 {
			tokens = append(tokens, textToken(input, pos, len(input)))
			break
		}

		tok, end, ok := scanTag(input, tagStart)
		if !ok {
			// An opening delimiter with no closing delimiter before end
			// of input: the remainder degrades to text.
			tokens = append(tokens, textToken(input, pos, len(input)))
			break
		}

		if tagStart > pos {
			tokens = append(tokens, textToken(input, pos, tagStart))
		}
		tokens = append(tokens, tok)
		pos = end
	}

	return tokens
}

func textToken(input string, start, end int) Token {
	return Token{
		Kind:  TokenText,
		Start: start,
		End:   end,
		Raw:   input[start:end],
		Value: input[start:end],
	}
}

// nextOpenDelimiter returns the smallest index >= pos at which one of the
// five tag syntaxes opens, or -1 if none does. All syntaxes open with a
// brace, so it is enough to test each brace position.
func nextOpenDelimiter(input string, pos int) int {
	for i := pos; i < len(input); i++ {
		if input[i] != '{' {
			continue
		}
		rest := input[i:]
		if strings.HasPrefix(rest, openRawSplice) ||
			strings.HasPrefix(rest, openPercent) ||
			strings.HasPrefix(rest, openPlaceholder) {
			return i
		}
	}
	return -1
}

// scanTag parses the tag opening at start. It returns the token, the
// offset just past its closing delimiter, and whether a well-formed tag
// was found at all.
func scanTag(input string, start int) (Token, int, bool) {
	rest := input[start:]

	switch {
	case strings.HasPrefix(rest, openRawSplice):
		return scanDelimited(input, start, openRawSplice, closeRawSplice, parseRawSplice)
	case strings.HasPrefix(rest, openParagraph):
		return scanDelimited(input, start, openParagraph, closeDouble, parseParagraph)
	case strings.HasPrefix(rest, openPercent):
		return scanDelimited(input, start, openPercent, closePercent, parsePercent)
	case strings.HasPrefix(rest, openPlaceholder):
		return scanDelimited(input, start, openPlaceholder, closeDouble, parsePlaceholder)
	}
	return Token{}, 0, false
}

// scanDelimited extracts the payload between the given delimiters and
// hands it to parse. A parse func may return ok=false to degrade the
// whole tag to a text token (e.g. an empty payload).
func scanDelimited(input string, start int, open, close string, parse func(payload string) (Token, bool)) (Token, int, bool) {
	bodyStart := start + len(open)
	rel := strings.Index(input[bodyStart:], close)
	if rel == -1 {
		return Token{}, 0, false
	}
	end := bodyStart + rel + len(close)
	payload := strings.TrimSpace(input[bodyStart : bodyStart+rel])

	tok, ok := parse(payload)
	if !ok {
		tok = Token{Kind: TokenText, Value: input[start:end]}
	}
	tok.Start = start
	tok.End = end
	tok.Raw = input[start:end]
	return tok, end, true
}

func parseRawSplice(payload string) (Token, bool) {
	if payload == "" {
		return Token{}, false
	}
	return Token{Kind: TokenRawSplice, Value: payload}, true
}

func parseParagraph(payload string) (Token, bool) {
	if payload == "" {
		return Token{}, false
	}
	return Token{Kind: TokenParagraphPlaceholder, Value: payload}, true
}

func parsePlaceholder(payload string) (Token, bool) {
	if payload == "" {
		return Token{}, false
	}
	return Token{Kind: TokenPlaceholder, Value: payload}, true
}

// parsePercent disambiguates {% ... %} tags by their leading keyword.
// Anything that is not a control keyword is a module tag whose name is
// the first whitespace-delimited word and whose data is the remainder.
func parsePercent(payload string) (Token, bool) {
	fields := strings.Fields(payload)
	if len(fields) == 0 {
		return Token{}, false
	}

	switch fields[0] {
	case "loop":
		varName, path, ok := parseLoopHeader(strings.TrimSpace(strings.TrimPrefix(payload, "loop")))
		if !ok {
			return Token{}, false
		}
		return Token{Kind: TokenLoopStart, Var: varName, Value: path}, true
	case "endloop":
		return Token{Kind: TokenLoopEnd}, true
	case "if":
		expr := strings.TrimSpace(strings.TrimPrefix(payload, "if"))
		if expr == "" {
			return Token{}, false
		}
		return Token{Kind: TokenCondIf, Value: expr}, true
	case "else":
		return Token{Kind: TokenCondElse}, true
	case "endif":
		return Token{Kind: TokenCondEnd}, true
	default:
		data := strings.TrimSpace(strings.TrimPrefix(payload, fields[0]))
		return Token{Kind: TokenModuleTag, Name: fields[0], Value: data}, true
	}
}

// parseLoopHeader parses "VAR in PATH".
func parseLoopHeader(header string) (string, string, bool) {
	inIdx := strings.Index(header, " in ")
	if inIdx == -1 {
		return "", "", false
	}
	varName := strings.TrimSpace(header[:inIdx])
	path := strings.TrimSpace(header[inIdx+len(" in "):])
	if varName == "" || path == "" || strings.ContainsAny(varName, " \t") {
		return "", "", false
	}
	return varName, path, true
}

// FindTags returns the raw text of every tag in the input, in order.
// Used by the default module applicability test and for debugging.
func FindTags(input string) []string {
	var tags []string
	for _, tok := range Tokenize(input) {
		if tok.Kind != TokenText {
			tags = append(tags, tok.Raw)
		}
	}
	return tags
}
