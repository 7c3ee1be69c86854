// Package metadata resolves published plugin versions from Maven repository
// metadata documents (maven-metadata.xml).
//
// A Resolver performs exactly one HTTP GET per call and never caches: every
// build asks the repository for its current "latest" value. Failures are
// classified as network errors (transport, non-200) or parse errors
// (malformed XML, missing /metadata/versioning/latest) and are never replaced
// by a default version.
package metadata
