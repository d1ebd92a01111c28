package modules

import (
	"context"
	"strings"
	"time"

	"github.com/weftlabs/weft/pkg/weft"
)

// Named layouts accepted by the now tag in addition to literal Go
// reference layouts.
var namedLayouts = map[string]string{
	"rfc3339":  time.RFC3339,
	"rfc1123":  time.RFC1123,
	"kitchen":  time.Kitchen,
	"date":     "2006-01-02",
	"datetime": "2006-01-02 15:04:05",
	"time":     "15:04:05",
}

// DateModule replaces {% now LAYOUT %} tags with the current time. The
// layout is a named layout or a Go reference layout; without one the
// output is RFC 3339.
type DateModule struct {
	weft.BaseModule

	// Now supplies the current time; overridable in tests.
	Now func() time.Time
}

// NewDateModule creates the date module.
func NewDateModule() *DateModule {
	return &DateModule{
		BaseModule: weft.BaseModule{
			Desc: weft.Descriptor{
				Name:     "date",
				Tags:     []string{"now"},
				Priority: 10,
			},
		},
		Now: time.Now,
	}
}

// Render substitutes every now tag in the text.
func (m *DateModule) Render(_ context.Context, text string, _ *weft.RenderContext, _ string) (string, error) {
	pattern := weft.TagPattern("now")
	now := m.Now()

	out := pattern.ReplaceAllStringFunc(text, func(tag string) string {
		groups := pattern.FindStringSubmatch(tag)
		layout := strings.TrimSpace(groups[1])
		if layout == "" {
			layout = time.RFC3339
		} else if named, ok := namedLayouts[strings.ToLower(layout)]; ok {
			layout = named
		}
		return now.Format(layout)
	})
	return out, nil
}
