// Package sdk implements the DatenLord client: a thin, concurrency-safe
// facade over a storage backend that adds configuration loading, local-file
// copy helpers, and the error contract shared with the foreign bindings.
//
// A Client is created from a single opaque configuration string (inline YAML
// or a file path), performs POSIX-like operations against the configured
// backend, and is released with Close. All errors are *storage.StoreError
// values carrying a stable numeric code, which the C binding marshals across
// the foreign boundary unchanged.
package sdk
