// Package log provides a minimal structured logging abstraction.
//
// Components depend on the Logger interface rather than a concrete logging
// library. The zerolog adapter is used in the CLI; NewNoopLogger is the
// conventional choice for tests.
package log
