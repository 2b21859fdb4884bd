// Package server implements the core connection, room, and routing engine
// for the Parlor chat service.
//
// The implementation is organized into specialized files for configuration,
// the registry, the router, connections, and the listeners to keep the
// codebase maintainable and testable as the project grows.
package server
