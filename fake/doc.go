// Package fake
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// In-memory backend services for tests and examples. They follow the same
// contract as the platform backends: handlers are always posted to the
// context, same-kind operations queue in submission order, and cancel or
// close aborts every pending operation. Register them on a context with
// concurrency.AddService before the first I/O object is created.

package fake
