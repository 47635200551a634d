// Package urltree parses raw URLs into the segment trees the matcher
// consumes: ordered path segments with matrix parameters, query values, and
// an optional fragment.
//
// The package owns URL canonicalization for the navigation pipeline. Every
// path entering the pipeline goes through Canonicalize so that history
// entries and match results agree on one spelling of each URL.
package urltree
