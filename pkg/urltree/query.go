package urltree

import "net/url"

// QueryHandling controls how the query of a new navigation combines with the
// query of the current URL.
type QueryHandling int

const (
	// QueryReplace discards the current query and uses only the new one.
	// This is the default behavior.
	QueryReplace QueryHandling = iota

	// QueryMerge overlays the new query onto the current one; keys present
	// in both take the new value.
	QueryMerge

	// QueryPreserve keeps the current query and ignores the new one.
	QueryPreserve
)

// String returns the handling mode name.
func (q QueryHandling) String() string {
	switch q {
	case QueryMerge:
		return "merge"
	case QueryPreserve:
		return "preserve"
	default:
		return "replace"
	}
}

// MergeQuery combines the current and next query values per the handling mode.
// The result is always a fresh map; neither input is mutated.
func MergeQuery(current, next url.Values, mode QueryHandling) url.Values {
	out := url.Values{}
	switch mode {
	case QueryPreserve:
		copyValues(out, current)
	case QueryMerge:
		copyValues(out, current)
		copyValues(out, next)
	default:
		copyValues(out, next)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func copyValues(dst, src url.Values) {
	for k, vs := range src {
		dst[k] = append([]string(nil), vs...)
	}
}
