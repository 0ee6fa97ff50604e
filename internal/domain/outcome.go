package domain

import (
	"encoding/json"
	"time"
)

// Status classifies the result of one delivery attempt sequence.
type Status string

const (
	StatusSent    Status = "sent"
	StatusInvalid Status = "invalid"
	StatusFailed  Status = "failed"
)

// Outcome is one ledger entry: the recorded result for a single recipient.
// Appended exactly once per recipient per run, in submission order.
type Outcome struct {
	Address   string
	Name      string
	Message   string
	Status    Status
	Error     string
	MessageID string
	Timestamp time.Time
}

// MarshalJSON emits the wire shape used by the HTTP API: error and messageId
// are null rather than empty strings, timestamp is ISO-8601.
func (o Outcome) MarshalJSON() ([]byte, error) {
	type entry struct {
		Address   string  `json:"address"`
		Name      string  `json:"name"`
		Message   string  `json:"message"`
		Status    Status  `json:"status"`
		Error     *string `json:"error"`
		MessageID *string `json:"messageId"`
		Timestamp string  `json:"timestamp"`
	}
	e := entry{
		Address:   o.Address,
		Name:      o.Name,
		Message:   o.Message,
		Status:    o.Status,
		Timestamp: o.Timestamp.UTC().Format(time.RFC3339),
	}
	if o.Error != "" {
		e.Error = &o.Error
	}
	if o.MessageID != "" {
		e.MessageID = &o.MessageID
	}
	return json.Marshal(e)
}

// UnmarshalJSON is the inverse of MarshalJSON; used when reloading archived
// run reports.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var e struct {
		Address   string  `json:"address"`
		Name      string  `json:"name"`
		Message   string  `json:"message"`
		Status    Status  `json:"status"`
		Error     *string `json:"error"`
		MessageID *string `json:"messageId"`
		Timestamp string  `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return err
	}
	o.Address = e.Address
	o.Name = e.Name
	o.Message = e.Message
	o.Status = e.Status
	if e.Error != nil {
		o.Error = *e.Error
	}
	if e.MessageID != nil {
		o.MessageID = *e.MessageID
	}
	if e.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, e.Timestamp)
		if err != nil {
			return err
		}
		o.Timestamp = t
	}
	return nil
}

// Ledger is the ordered, append-only record of outcomes for one run.
type Ledger []Outcome

// Summary aggregates a ledger by status.
type Summary struct {
	Total   int `json:"total"`
	Sent    int `json:"sent"`
	Invalid int `json:"invalid"`
	Failed  int `json:"failed"`
}

// Summarize counts ledger entries by status.
func (l Ledger) Summarize() Summary {
	s := Summary{Total: len(l)}
	for _, o := range l {
		switch o.Status {
		case StatusSent:
			s.Sent++
		case StatusInvalid:
			s.Invalid++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}
