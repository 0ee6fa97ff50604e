// Package ports defines the interfaces that connect the dispatch and session
// layers to infrastructure adapters.
//
// The session and dispatcher depend only on these interfaces. Adapters
// (whatsmeow transport, SMTP sender, CSV reader) implement them with concrete
// integrations, which keeps the core testable with in-memory fakes.
package ports
