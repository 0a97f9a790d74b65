// Package escape turns arbitrary strings into safe JavaScript string
// literal content for generated code.
package escape
