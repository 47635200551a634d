package urltree

import (
	"errors"
	"net/url"
	"strings"
)

// Parse parses a raw URL path into a Tree.
// Accepts "/users;sort=asc/42?tab=posts#top" style input: path segments with
// optional matrix parameters, a query string, and a fragment. The input must
// be a path-relative URL; schemes and hosts are not the matcher's business.
func Parse(raw string) (*Tree, error) {
	canonPath, query, _, err := Canonicalize(raw)
	if err != nil {
		return nil, err
	}

	// Split off the fragment before query parsing.
	var fragment string
	if idx := strings.IndexByte(query, '#'); idx != -1 {
		fragment, err = url.QueryUnescape(query[idx+1:])
		if err != nil {
			return nil, err
		}
		query = query[:idx]
	} else if idx := strings.IndexByte(canonPath, '#'); idx != -1 {
		fragment, err = url.QueryUnescape(canonPath[idx+1:])
		if err != nil {
			return nil, err
		}
		canonPath = canonPath[:idx]
		if canonPath == "" {
			canonPath = "/"
		}
	}

	t := &Tree{Fragment: fragment}

	if query != "" {
		values, err := url.ParseQuery(query)
		if err != nil {
			return nil, err
		}
		t.Query = values
	}

	for _, rawSeg := range splitPath(canonPath) {
		seg, err := parseSegment(rawSeg)
		if err != nil {
			return nil, err
		}
		t.Segments = append(t.Segments, seg)
	}

	return t, nil
}

// MustParse is Parse for static inputs; it panics on malformed URLs.
func MustParse(raw string) *Tree {
	t, err := Parse(raw)
	if err != nil {
		panic("urltree: " + err.Error())
	}
	return t
}

// FromPath builds a tree from a plain path, ignoring malformed matrix or
// escape sequences by treating segments literally.
func FromPath(path string) *Tree {
	t, err := Parse(path)
	if err != nil {
		t = New(splitPath(path)...)
	}
	return t
}

// Canonicalize normalizes a URL path for navigation: enforces a leading
// slash, collapses duplicate slashes, and strips the trailing slash (except
// on the root). Backslashes and NUL bytes are rejected. The returned query
// excludes the '?'. changed reports whether the path was rewritten, which
// callers use to replace instead of push history.
func Canonicalize(path string) (canonPath, query string, changed bool, err error) {
	if path == "" {
		return "/", "", true, nil
	}

	canonPath, query, _ = strings.Cut(path, "?")

	// SECURITY: Reject backslash and null
	if strings.Contains(canonPath, "\\") {
		return "", "", false, errors.New("urltree: path contains backslash")
	}
	if strings.Contains(canonPath, "\x00") {
		return "", "", false, errors.New("urltree: path contains null byte")
	}

	original := canonPath

	if !strings.HasPrefix(canonPath, "/") {
		canonPath = "/" + canonPath
	}

	for strings.Contains(canonPath, "//") {
		canonPath = strings.ReplaceAll(canonPath, "//", "/")
	}

	if len(canonPath) > 1 && strings.HasSuffix(canonPath, "/") {
		canonPath = strings.TrimSuffix(canonPath, "/")
	}

	return canonPath, query, canonPath != original, nil
}

// splitPath splits a canonical path into raw segments.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// parseSegment decodes one raw segment including its matrix parameters.
func parseSegment(raw string) (Segment, error) {
	parts := strings.Split(raw, ";")
	path, err := url.PathUnescape(parts[0])
	if err != nil {
		return Segment{}, err
	}
	seg := Segment{Path: path}
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		key, err := url.PathUnescape(k)
		if err != nil {
			return Segment{}, err
		}
		value, err := url.PathUnescape(v)
		if err != nil {
			return Segment{}, err
		}
		if seg.Matrix == nil {
			seg.Matrix = make(map[string]string)
		}
		seg.Matrix[key] = value
	}
	return seg, nil
}
