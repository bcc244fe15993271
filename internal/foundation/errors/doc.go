// Package errors provides the classified error primitives used across pagesmith.
//
// Every failure that leaves a pipeline stage is a ClassifiedError carrying a
// category (which stage or subsystem failed), a severity, a retry hint and a
// small structured context map. The HTTP adapter turns those into the
// `{error, details}` payloads returned by the API, and the CLI adapter into
// process exit codes.
//
// Example usage:
//
//	err := errors.PublishError("create tree failed").
//		WithCause(cause).
//		WithContext("step", "create_tree").
//		WithContext("repository", "octo/site-20250101").
//		Build()
package errors
