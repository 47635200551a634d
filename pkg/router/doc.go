// Package router holds the static route table and the matcher that resolves
// parsed URLs against it.
//
// Routes form an ordered tree; declaration order is priority. Matching is
// depth-first and first-match-wins with backtracking: a parent whose
// children cannot consume the remaining segments is treated as non-matching
// and the next sibling is tried. The package also owns redirect expansion
// (static paths, ":param" templates, and redirect functions) and the
// per-navigation snapshot arena the pipeline activates.
package router
