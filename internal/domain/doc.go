// Package domain contains the core types of the bulk messaging agent:
// recipient rows, dispatch outcomes and the run ledger, and the error
// taxonomy shared by the session and dispatch layers.
//
// Types here have no dependencies on transports or adapters.
package domain
