package snapshot

import (
	"sort"
	"strconv"
	"strings"

	"github.com/aymerick/douceur/css"
	"golang.org/x/net/html"

	"github.com/porticus-lab/go-realpdf/layout"
)

// selector is a compound selector made of an optional tag, id and class,
// e.g. "div", ".page", "#main" or "p.note".
type selector struct {
	tag   string
	id    string
	class string
}

// parseSelector returns false for anything beyond a compound selector
// (combinators, attributes, pseudo-classes).
func parseSelector(s string) (selector, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " >+~[]:()") {
		return selector{}, false
	}
	var sel selector
	if i := strings.IndexByte(s, '.'); i >= 0 {
		sel.class = s[i+1:]
		s = s[:i]
		if strings.ContainsAny(sel.class, ".#") {
			return selector{}, false
		}
	}
	if i := strings.IndexByte(s, '#'); i >= 0 {
		sel.id = s[i+1:]
		s = s[:i]
	}
	if s != "*" {
		sel.tag = strings.ToLower(s)
	}
	return sel, true
}

func (s selector) specificity() int {
	n := 0
	if s.id != "" {
		n += 100
	}
	if s.class != "" {
		n += 10
	}
	if s.tag != "" {
		n++
	}
	return n
}

func (s selector) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.tag != "" && n.Data != s.tag {
		return false
	}
	if s.id != "" && attr(n, "id") != s.id {
		return false
	}
	if s.class != "" {
		found := false
		for _, c := range strings.Fields(attr(n, "class")) {
			if c == s.class {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

type styleRule struct {
	sel   selector
	order int
	decls []*css.Declaration
}

// cascade is the author style sheet of a static snapshot.
type cascade struct {
	rules []styleRule
}

func (c *cascade) add(sheet *css.Stylesheet) {
	for _, r := range sheet.Rules {
		if r.Kind != css.QualifiedRule {
			continue
		}
		for _, s := range r.Selectors {
			sel, ok := parseSelector(s)
			if !ok {
				continue
			}
			c.rules = append(c.rules, styleRule{sel: sel, order: len(c.rules), decls: r.Declarations})
		}
	}
}

// declarations returns the declared properties of n: matching rules in
// specificity then source order, inline style last.
func (c *cascade) declarations(n *html.Node, inline []*css.Declaration) map[string]string {
	var matched []styleRule
	for _, r := range c.rules {
		if r.sel.matches(n) {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		si, sj := matched[i].sel.specificity(), matched[j].sel.specificity()
		if si != sj {
			return si < sj
		}
		return matched[i].order < matched[j].order
	})

	props := make(map[string]string)
	important := make(map[string]bool)
	set := func(d *css.Declaration, inlineDecl bool) {
		p := strings.ToLower(d.Property)
		v := strings.TrimSpace(d.Value)
		if v == "" || important[p] && !d.Important {
			return
		}
		props[p] = v
		if d.Important && !inlineDecl {
			important[p] = true
		}
	}
	for _, r := range matched {
		for _, d := range r.decls {
			set(d, false)
		}
	}
	for _, d := range inline {
		set(d, true)
	}
	return props
}

// parseLength converts a CSS length to px. em is relative to fontSize.
func parseLength(s string, fontSize float64) (float64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	scale := 1.0
	switch {
	case strings.HasSuffix(s, "px"):
		s = strings.TrimSuffix(s, "px")
	case strings.HasSuffix(s, "pt"):
		s, scale = strings.TrimSuffix(s, "pt"), 4.0/3
	case strings.HasSuffix(s, "rem"):
		s, scale = strings.TrimSuffix(s, "rem"), DefaultStyle.FontSize
	case strings.HasSuffix(s, "em"):
		s, scale = strings.TrimSuffix(s, "em"), fontSize
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f * scale, true
}

var namedColors = map[string][3]float64{
	"black":   {0, 0, 0},
	"white":   {255, 255, 255},
	"red":     {255, 0, 0},
	"green":   {0, 128, 0},
	"lime":    {0, 255, 0},
	"blue":    {0, 0, 255},
	"yellow":  {255, 255, 0},
	"gray":    {128, 128, 128},
	"grey":    {128, 128, 128},
	"silver":  {192, 192, 192},
	"maroon":  {128, 0, 0},
	"navy":    {0, 0, 128},
	"orange":  {255, 165, 0},
	"purple":  {128, 0, 128},
	"teal":    {0, 128, 128},
	"fuchsia": {255, 0, 255},
	"aqua":    {0, 255, 255},
	"olive":   {128, 128, 0},
}

// normalizeColor renders a CSS color the way getComputedStyle reports it:
// "rgb(r, g, b)", or "rgba(r, g, b, a)" when not fully opaque.
func normalizeColor(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	var rgb [3]float64
	alpha := 1.0

	switch {
	case s == "transparent":
		alpha = 0
	case strings.HasPrefix(s, "#"):
		v, ok := parseHexColor(s[1:])
		if !ok {
			return "", false
		}
		rgb, alpha = [3]float64{v[0], v[1], v[2]}, v[3]/255
	case strings.HasPrefix(s, "rgb"):
		c, a, ok := layout.ParseColor(s)
		if !ok {
			return "", false
		}
		rgb, alpha = [3]float64{c.R, c.G, c.B}, a
	default:
		c, ok := namedColors[s]
		if !ok {
			return "", false
		}
		rgb = c
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	if alpha >= 1 {
		return "rgb(" + f(rgb[0]) + ", " + f(rgb[1]) + ", " + f(rgb[2]) + ")", true
	}
	return "rgba(" + f(rgb[0]) + ", " + f(rgb[1]) + ", " + f(rgb[2]) + ", " + f(alpha) + ")", true
}

func parseHexColor(h string) ([4]float64, bool) {
	switch len(h) {
	case 3, 4:
		var expanded strings.Builder
		for _, c := range h {
			expanded.WriteRune(c)
			expanded.WriteRune(c)
		}
		h = expanded.String()
	case 6, 8:
	default:
		return [4]float64{}, false
	}
	if len(h) == 6 {
		h += "ff"
	}
	var out [4]float64
	for i := range out {
		v, err := strconv.ParseUint(h[2*i:2*i+2], 16, 8)
		if err != nil {
			return [4]float64{}, false
		}
		out[i] = float64(v)
	}
	return out, true
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
