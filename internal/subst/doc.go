// Package subst expands variable placeholders in trait data and normalizes
// file URLs.
//
// Placeholders use the familiar shell-like forms $name and ${name}. Library
// variables are consulted before the process environment. Unknown or
// malformed placeholders are left as written, and $$ yields a literal $.
//
// After expansion, any string value beginning with "file:" has its path
// component cleaned of "." and ".." segments. Everything in this package is
// a pure function of its inputs.
package subst
