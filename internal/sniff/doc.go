// Package sniff classifies opaque byte streams as text, binary, or image
// without relying on OS-level file metadata.
//
// The decision procedure is ordered: declared name/MIME first, then
// curated extension lists, then magic-byte signatures and byte-class
// statistics over a leading sample. "unknown" is a first-class outcome;
// misclassifying binary data as text risks corrupting it if it is later
// opened in a text editor and saved back.
package sniff
