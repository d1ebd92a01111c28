package weft

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FormatValue converts a resolved context value to its output string
// form. Scalars render as plain text; sequences and mappings serialize
// to JSON so structured values stay inspectable in rendered output.
func FormatValue(value any) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", v)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', 10, 32)
	case float64:
		// 'g' with precision 15 drops trailing zeros and avoids float
		// representation noise.
		return strconv.FormatFloat(v, 'g', 15, 64)
	case []any, []string, []int, []float64, []bool,
		[]map[string]any, []TemplateData, map[string]any, TemplateData,
		map[string]string, map[string]int, map[string]float64, map[string]bool:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// isEmptyValue reports whether a resolved value counts as empty for
// paragraph-conditional placeholders: nil, empty string, or a sequence
// or mapping with no elements.
func isEmptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case []int:
		return len(v) == 0
	case []float64:
		return len(v) == 0
	case []bool:
		return len(v) == 0
	case []map[string]any:
		return len(v) == 0
	case []TemplateData:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	case TemplateData:
		return len(v) == 0
	}
	return false
}
