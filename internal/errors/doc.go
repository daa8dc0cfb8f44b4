// Package errors defines error types for the CDP transport shim.
//
// This package provides structured error types for the failure paths of the
// attach/detach lifecycle and of command dispatch. All error types support
// error unwrapping and can be checked using errors.Is, errors.As, and errors.AsType.
package errors
