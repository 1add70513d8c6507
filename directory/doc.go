// Package directory provides in-process reference implementations of the
// versioned package and implementation provider contracts. A Directory maps
// contract names to implementation addresses and can be frozen once its
// contents are final; a Package collects directories under version labels.
//
// Version labels are matched verbatim everywhere: the label registered with
// AddVersion is the label HasVersion and Version answer to. Semver parsing
// is used only to validate the label's shape and to order versions for
// Latest, with a tolerated leading "v" and missing minor/patch segments.
package directory
