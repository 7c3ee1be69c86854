// Package errors provides the classified error primitives used across guidebuilder.
//
// Every failure that aborts a task is a ClassifiedError carrying a category
// (network, parse, filesystem, ...), a severity and optional context. The CLI
// adapter turns the category into a process exit code.
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryNetwork, "fetch metadata").
//		WithContext("url", metadataURL).
//		Build()
package errors
