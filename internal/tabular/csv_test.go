package tabular

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRowsDetectsColumnsInHeaderOrder(t *testing.T) {
	in := "Name,Phone,Message\nAlice,9876543210,Hi there\nBob,+19876543210,\n"
	rows, err := NewReader(strings.NewReader(in)).Rows(context.Background())
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	r := rows[0]
	if r.AddressKey != "phone" || r.NameKey != "name" || r.MessageKey != "message" {
		t.Fatalf("role keys = %q/%q/%q", r.AddressKey, r.NameKey, r.MessageKey)
	}
	if got := r.Address(); got != "9876543210" {
		t.Fatalf("Address() = %q", got)
	}
	if got := r.Name(); got != "Alice" {
		t.Fatalf("Name() = %q", got)
	}
	if got := rows[1].Address(); got != "+19876543210" {
		t.Fatalf("rows[1].Address() = %q", got)
	}
}

func TestRowsFirstAliasInFileOrderWins(t *testing.T) {
	in := "email,phone\na@example.com,9876543210\n"
	rows, err := NewReader(strings.NewReader(in)).Rows(context.Background())
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if rows[0].AddressKey != "email" {
		t.Fatalf("AddressKey = %q, want email", rows[0].AddressKey)
	}
}

func TestRowsNoAddressColumn(t *testing.T) {
	in := "name,notes\nAlice,hello\n"
	_, err := NewReader(strings.NewReader(in)).Rows(context.Background())
	if !errors.Is(err, ErrNoAddressColumn) {
		t.Fatalf("err = %v, want ErrNoAddressColumn", err)
	}
}

func TestRowsSkipsBlankLines(t *testing.T) {
	in := "number,name\n9876543210,Alice\n,\n9123456789,Bob\n"
	rows, err := NewReader(strings.NewReader(in)).Rows(context.Background())
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
}

func TestRowsRaggedRecords(t *testing.T) {
	in := "number,name,message\n9876543210,Alice\n"
	rows, err := NewReader(strings.NewReader(in)).Rows(context.Background())
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if got := rows[0].Message(); got != "" {
		t.Fatalf("Message() = %q, want empty", got)
	}
}

func TestRowsHeaderCaseAndSpacing(t *testing.T) {
	in := " Phone_Number , FULL_NAME \n9876543210,Alice\n"
	rows, err := NewReader(strings.NewReader(in)).Rows(context.Background())
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if rows[0].AddressKey != "phone_number" || rows[0].NameKey != "full_name" {
		t.Fatalf("role keys = %q/%q", rows[0].AddressKey, rows[0].NameKey)
	}
}

func TestRowsEmptyInput(t *testing.T) {
	if _, err := NewReader(strings.NewReader("")).Rows(context.Background()); err == nil {
		t.Fatal("expected error for empty input")
	}
}
