// Package ref parses and formats entity references.
//
// A reference is an opaque string such as "bal:///shots/sh010?v=2". Parsing
// yields a Locator (name, optional version, access mode); formatting is the
// inverse. Structural failures are reported as *MalformedError so the batch
// adapter can report them per element.
package ref
