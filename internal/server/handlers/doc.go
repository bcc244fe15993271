// Package handlers contains HTTP handlers for the pagesmith HTTP API.
//
// This package provides handlers for:
//   - Health probes (monitoring)
//   - The generation endpoint that runs the pipeline
//   - Run journal queries
//   - Shared response helper functions
//
// Errors are written through the foundation/errors HTTP adapter so every
// failure carries the same {error, details} shape.
package handlers
