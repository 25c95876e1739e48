// Package templates renders outreach subject, body, and call-script text
// with the Liquid template language. Broker and carrier fields are injected
// as plain variables ({{ broker_name }}, {{ home_state }}, ...).
package templates

import (
	"fmt"
	"strings"
	"sync"

	"github.com/osteele/liquid"
)

// Renderer compiles and renders Liquid templates with caching. Implements
// outreach.Renderer. Safe for concurrent use.
type Renderer struct {
	engine *liquid.Engine
	cache  sync.Map // template source -> *liquid.Template
}

// NewRenderer creates a renderer with the outreach filter set registered.
func NewRenderer() *Renderer {
	r := &Renderer{engine: liquid.NewEngine()}
	r.registerFilters()
	return r
}

func (r *Renderer) registerFilters() {
	// Fallback value: {{ broker_name | default: "there" }}
	r.engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		s := fmt.Sprintf("%v", value)
		if s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})

	// Capitalize first letter: {{ broker_name | capitalize }}
	r.engine.RegisterFilter("capitalize", func(s string) string {
		if len(s) == 0 {
			return s
		}
		return strings.ToUpper(string(s[0])) + strings.ToLower(s[1:])
	})

	// Region codes read better uppercased: {{ broker_state | region }}
	r.engine.RegisterFilter("region", func(s string) string {
		return strings.ToUpper(strings.TrimSpace(s))
	})

	// Lane descriptors as prose: {{ lanes | lane_list }} -> "NJ-PA and NJ-NY"
	r.engine.RegisterFilter("lane_list", func(s string) string {
		parts := strings.Split(s, ",")
		var lanes []string
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				lanes = append(lanes, p)
			}
		}
		switch len(lanes) {
		case 0:
			return ""
		case 1:
			return lanes[0]
		default:
			return strings.Join(lanes[:len(lanes)-1], ", ") + " and " + lanes[len(lanes)-1]
		}
	})

	// Truncate with ellipsis: {{ body | truncate: 120 }}
	r.engine.RegisterFilter("truncate", func(s string, length int) string {
		if len(s) <= length {
			return s
		}
		if length <= 3 {
			return s[:length]
		}
		return s[:length-3] + "..."
	})
}

// Parse compiles a template string and reports syntax errors. Used to
// validate templates at write-time, before they enter a sequence.
func (r *Renderer) Parse(src string) error {
	_, err := r.engine.ParseString(src)
	return err
}

// Render processes a template with the given variables. Compiled templates
// are cached by source, so sweep batches rendering the same follow-up pay
// the parse cost once.
func (r *Renderer) Render(src string, vars map[string]any) (string, error) {
	if cached, ok := r.cache.Load(src); ok {
		return cached.(*liquid.Template).RenderString(vars)
	}

	tpl, err := r.engine.ParseString(src)
	if err != nil {
		return src, fmt.Errorf("parse template: %w", err)
	}
	r.cache.Store(src, tpl)

	out, err := tpl.RenderString(vars)
	if err != nil {
		return src, fmt.Errorf("render template: %w", err)
	}
	return out, nil
}
