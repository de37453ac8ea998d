// Package serial provides a serial line I/O object bound to an IOContext.
//
// Every operation comes in two forms. The plain form returns the backend
// failure unchanged; the Must form panics with an *api.OpError tagged with
// the operation name. Asynchronous operations return at once and their
// handlers always run later on a goroutine dispatching the port's context,
// never inside the initiating call.
//
// A Port exclusively owns its backend state. Ports are not safe for
// concurrent use; distinct ports are.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package serial
