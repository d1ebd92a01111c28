package weft

import (
	"strconv"
	"strings"
)

// comparators in fixed scan order. The first operator textually present
// anywhere in the expression wins, so >= and <= must be tried before
// their single-character forms. This first-match scan misparses operands
// that themselves contain comparator characters (e.g. a string literal
// holding ">"); the behavior is kept for template compatibility.
var comparators = []string{"==", "!=", ">=", "<=", ">", "<"}

// evalCondition evaluates a conditional expression against data. The
// left operand is always resolved as a context path; the right operand
// is a quoted literal, number, bool, context path, or literal string, in
// that order. Without a comparator the expression is a bare path tested
// for truthiness. Conditions never fail: any resolution problem yields
// false.
func evalCondition(expr string, data TemplateData) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return false
	}

	for _, op := range comparators {
		idx := strings.Index(expr, op)
		if idx == -1 {
			continue
		}

		leftPath := strings.TrimSpace(expr[:idx])
		rightText := strings.TrimSpace(expr[idx+len(op):])

		left, ok := Resolve(data, leftPath)
		if !ok {
			return false
		}
		right := parseOperand(rightText, data)
		return compareValues(op, left, right)
	}

	value, ok := Resolve(data, expr)
	if !ok {
		return false
	}
	return isTruthy(value)
}

// parseOperand interprets the right-hand side of a comparison: quoted
// string, numeric literal, boolean literal, context path, or finally the
// raw text as a literal string.
func parseOperand(text string, data TemplateData) any {
	if len(text) >= 2 {
		if (text[0] == '\'' && text[len(text)-1] == '\'') ||
			(text[0] == '"' && text[len(text)-1] == '"') {
			return text[1 : len(text)-1]
		}
	}
	if n, err := strconv.ParseFloat(text, 64); err == nil {
		return n
	}
	if text == "true" {
		return true
	}
	if text == "false" {
		return false
	}
	if value, ok := Resolve(data, text); ok {
		return value
	}
	return text
}

// compareValues applies a comparator to two resolved values. When both
// sides coerce to numbers the comparison is numeric; otherwise equality
// and ordering work on the values' string forms.
func compareValues(op string, left, right any) bool {
	leftNum, leftOK := toFloat(left)
	rightNum, rightOK := toFloat(right)

	if leftOK && rightOK {
		switch op {
		case "==":
			return leftNum == rightNum
		case "!=":
			return leftNum != rightNum
		case ">=":
			return leftNum >= rightNum
		case "<=":
			return leftNum <= rightNum
		case ">":
			return leftNum > rightNum
		case "<":
			return leftNum < rightNum
		}
		return false
	}

	leftStr := FormatValue(left)
	rightStr := FormatValue(right)
	switch op {
	case "==":
		return leftStr == rightStr
	case "!=":
		return leftStr != rightStr
	case ">=":
		return leftStr >= rightStr
	case "<=":
		return leftStr <= rightStr
	case ">":
		return leftStr > rightStr
	case "<":
		return leftStr < rightStr
	}
	return false
}

// toFloat coerces numeric values (and numeric strings) to float64.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n, err == nil
	}
	return 0, false
}

// isTruthy reports the truthiness of a resolved value: non-nil,
// non-empty, non-zero, non-false.
func isTruthy(value any) bool {
	if value == nil {
		return false
	}
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v != ""
	}
	if n, ok := toFloat(value); ok {
		return n != 0
	}
	if seq, err := toSequence(value); err == nil {
		return len(seq) > 0
	}
	return !isEmptyValue(value)
}
