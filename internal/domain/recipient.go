package domain

import "strings"

// Row is one record produced by a tabular source: normalized column values
// plus the detected role columns. Column keys are lowercased and trimmed.
type Row struct {
	Values map[string]string

	// Detected role column keys. AddressKey is always set by the tabular
	// reader; NameKey and MessageKey may be empty.
	AddressKey string
	NameKey    string
	MessageKey string
}

// Address returns the raw value of the detected address column.
func (r Row) Address() string {
	return strings.TrimSpace(r.Values[r.AddressKey])
}

// Name returns the raw value of the detected name column, if any.
func (r Row) Name() string {
	if r.NameKey == "" {
		return ""
	}
	return strings.TrimSpace(r.Values[r.NameKey])
}

// Message returns the per-row message column value, if any. Used only when
// no explicit template is supplied with the dispatch request.
func (r Row) Message() string {
	if r.MessageKey == "" {
		return ""
	}
	return strings.TrimSpace(r.Values[r.MessageKey])
}

// Recipient is a fully resolved dispatch target derived from a Row.
// Immutable once constructed.
type Recipient struct {
	RawAddress      string
	DisplayName     string
	ResolvedAddress string
	Body            string
	AttachmentPath  string

	// ResolveErr records an address normalization failure. The recipient is
	// still ledgered (as Invalid) but never submitted to the transport.
	ResolveErr error
}
