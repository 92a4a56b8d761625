package layout

import (
	"strconv"
	"strings"
)

// Color is an RGB color with channels in [0, 255].
type Color struct {
	R, G, B float64
}

// ParseColor parses the "rgb(r, g, b)" and "rgba(r, g, b, a)" forms a
// computed style reports. alpha is 1 unless a fourth channel is present.
// Any other form reports ok == false.
func ParseColor(s string) (c Color, alpha float64, ok bool) {
	s = strings.TrimSpace(s)
	var body string
	switch {
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		body = s[len("rgba(") : len(s)-1]
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		body = s[len("rgb(") : len(s)-1]
	default:
		return Color{}, 1, false
	}

	// Both the legacy comma form and the space form with "/ alpha".
	var alphaPart string
	if i := strings.IndexByte(body, '/'); i >= 0 {
		body, alphaPart = body[:i], body[i+1:]
	}
	var parts []string
	if strings.Contains(body, ",") {
		parts = strings.Split(body, ",")
	} else {
		parts = strings.Fields(body)
	}
	if alphaPart != "" {
		parts = append(parts, alphaPart)
	}
	if len(parts) != 3 && len(parts) != 4 {
		return Color{}, 1, false
	}

	v := make([]float64, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		pct := strings.HasSuffix(p, "%")
		f, err := strconv.ParseFloat(strings.TrimSuffix(p, "%"), 64)
		if err != nil {
			return Color{}, 1, false
		}
		switch {
		case pct && i < 3:
			f = f * 255 / 100
		case pct:
			f /= 100
		}
		v[i] = f
	}

	alpha = 1
	if len(v) == 4 {
		alpha = v[3]
	}
	return Color{R: v[0], G: v[1], B: v[2]}, alpha, true
}
