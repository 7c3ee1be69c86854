// Package workspace manages staging directories for build outputs.
//
// A Manager creates a hidden, uniquely named directory next to the final
// output location, lets the caller populate it, and then publishes it with
// Commit. Because staging and output share a parent directory the publish
// step is a rename, so consumers never observe a half-written output tree.
package workspace
