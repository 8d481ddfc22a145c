// Package muxnormalizer rewrites request paths and query parameters to the
// canonical form of the registered routes, so /Player//Next/ reaches
// /player/next and ?Artist= reads as ?artist=.
package muxnormalizer

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
)

type Normalizer struct {
	bySegmentCount map[int][]routeTemplate
	queryNames     map[string]string
}

type routeTemplate struct {
	staticPos map[int]string
}

// New indexes the static segments of every route registered on r.
// queryNames lists the canonical query parameter names.
func New(r *mux.Router, queryNames []string) (*Normalizer, error) {
	n := &Normalizer{
		bySegmentCount: make(map[int][]routeTemplate),
		queryNames:     make(map[string]string, len(queryNames)),
	}
	for _, name := range queryNames {
		n.queryNames[strings.ToLower(name)] = name
	}

	err := r.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		template, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		staticPos := make(map[int]string)
		segIndex := 0
		for _, part := range strings.Split(template, "/") {
			if part == "" {
				continue
			}
			// {key:.+} style variables can span segments, never index past them
			if strings.HasPrefix(part, "{") && strings.Contains(part, ":.") {
				return nil
			}
			if !strings.HasPrefix(part, "{") {
				staticPos[segIndex] = part
			}
			segIndex++
		}
		n.bySegmentCount[segIndex] = append(n.bySegmentCount[segIndex], routeTemplate{staticPos: staticPos})
		return nil
	})
	return n, err
}

// Middleware returns an HTTP middleware that normalizes request paths and query parameters.
func (n *Normalizer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		for strings.Contains(path, "//") {
			path = strings.ReplaceAll(path, "//", "/")
		}
		if path != "/" && strings.HasSuffix(path, "/") {
			path = path[:len(path)-1]
		}
		if path = n.normalizePath(path); path != r.URL.Path {
			r.URL.Path = path
			r.URL.RawPath = ""
		}

		if r.URL.RawQuery != "" {
			r.URL.RawQuery = n.normalizeQuery(r.URL.RawQuery)
		}
		next.ServeHTTP(w, r)
	})
}

// normalizePath rewrites the casing of static segments to the first
// route template they match.
func (n *Normalizer) normalizePath(path string) string {
	segments := make([]string, 0, strings.Count(path, "/"))
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			segments = append(segments, p)
		}
	}

	for _, tpl := range n.bySegmentCount[len(segments)] {
		rewritten, ok := tpl.match(segments)
		if !ok {
			continue
		}
		if rewritten != nil {
			return "/" + strings.Join(rewritten, "/")
		}
		break
	}
	return path
}

// match reports whether segments fit the template. It returns the
// segments with canonical casing when any of them differ.
func (tpl routeTemplate) match(segments []string) ([]string, bool) {
	var rewritten []string
	for i, seg := range segments {
		canonical, ok := tpl.staticPos[i]
		if !ok {
			continue
		}
		if !strings.EqualFold(seg, canonical) {
			return nil, false
		}
		if seg != canonical {
			if rewritten == nil {
				rewritten = append([]string(nil), segments...)
			}
			rewritten[i] = canonical
		}
	}
	return rewritten, true
}

// normalizeQuery renames known query parameters to their canonical casing.
func (n *Normalizer) normalizeQuery(rawQuery string) string {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}
	normalized := url.Values{}
	for name, vals := range values {
		if canonical, ok := n.queryNames[strings.ToLower(name)]; ok {
			name = canonical
		}
		normalized[name] = append(normalized[name], vals...)
	}
	return normalized.Encode()
}
