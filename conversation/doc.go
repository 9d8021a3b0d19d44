// Package conversation owns the conversation document: the append-only
// message log, the append-only config history with its version
// tracker, and the version-aware context extractor that guarantees an
// agent only ever sees history produced under a compatible agent set.
//
// Supported storage backends:
//   - Memory: for development and testing (default)
//   - Redis: for distributed production deployments
package conversation
