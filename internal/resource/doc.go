// Package resource bounds calls into the external prediction procedure.
//
// A Controller combines two limits:
//
//   - Concurrency: a weighted semaphore caps the number of predictive-error fits in flight.
//   - Rate: a token bucket caps fits per second, for procedures backed by a remote service.
//
// All methods are safe on a nil *Controller, which imposes no limits.
package resource
