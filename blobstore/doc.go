// Package blobstore provides storage for exported matching runs.
//
// Store is the interface for writing and reading named blobs. Names use forward slashes
// ("runs/<id>.cvm") regardless of backend. Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, for tests and dry runs
//   - LocalStore: local filesystem with atomic writes
//   - s3.Store: Amazon S3 via the transfer manager
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
// Implement the Store interface to support custom storage backends:
//
//	type Store interface {
//	    Put(ctx, name, data) error
//	    Get(ctx, name) ([]byte, error)
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Get must return an error satisfying errors.Is(err, ErrNotFound) for missing blobs.
package blobstore
