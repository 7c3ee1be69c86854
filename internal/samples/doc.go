// Package samples produces the processed copy of a guide's sample tree.
//
// Every file under the source directory is copied to the output directory
// with the same relative path. Text files have their @token@ placeholders
// replaced from a TokenMap in a single left-to-right pass; files that look
// binary are copied untouched. The new tree is assembled in a staging
// directory and published with a rename, so the output either reflects a
// complete run or the previous one.
package samples
