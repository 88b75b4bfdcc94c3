// Package descriptor defines the extension descriptor embedded in every artifact
// and parses it: the JSON document is checked against an embedded schema and its
// versions must be semantic major.minor[.patch] versions.
package descriptor
