// Package tabular reads recipient rows from CSV input and detects which
// columns carry the address, name, and message roles.
//
// Spreadsheet (xlsx) parsing is out of scope; callers convert spreadsheets
// upstream or upload CSV directly.
package tabular

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/outflow-sh/outflow/internal/domain"
	"github.com/outflow-sh/outflow/internal/ports"
)

// Column aliases recognized during role detection, matched against
// lowercased, trimmed header names. The first header (in file order) whose
// name appears in an alias set wins the role.
var (
	addressAliases = aliasSet(
		"number", "phone", "mobile", "contact", "phonenumber", "phone_number",
		"email", "e-mail", "mail",
	)
	nameAliases = aliasSet(
		"name", "fullname", "full_name", "customer_name", "client_name",
	)
	messageAliases = aliasSet(
		"message", "msg", "text", "content",
	)
)

// ErrNoAddressColumn is returned when no header matches an address alias.
var ErrNoAddressColumn = errors.New("tabular: no address column found (expected number, phone, mobile, contact, or email)")

// Reader reads rows from a CSV stream. It implements ports.RowSource.
type Reader struct {
	src io.Reader
}

var _ ports.RowSource = (*Reader)(nil)

// NewReader creates a Reader over src. The first record is the header row.
func NewReader(src io.Reader) *Reader {
	return &Reader{src: src}
}

// Rows reads the entire stream and returns the ordered rows. Rows whose
// cells are all empty are dropped. Returns ErrNoAddressColumn if the header
// has no recognizable address column.
func (r *Reader) Rows(ctx context.Context) ([]domain.Row, error) {
	cr := csv.NewReader(r.src)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("tabular: empty input")
		}
		return nil, fmt.Errorf("tabular: read header: %w", err)
	}

	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = strings.ToLower(strings.TrimSpace(h))
	}

	addressKey := detectRole(keys, addressAliases)
	if addressKey == "" {
		return nil, ErrNoAddressColumn
	}
	nameKey := detectRole(keys, nameAliases)
	messageKey := detectRole(keys, messageAliases)

	var rows []domain.Row
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tabular: read row %d: %w", len(rows)+2, err)
		}

		values := make(map[string]string, len(keys))
		empty := true
		for i, key := range keys {
			if key == "" || i >= len(record) {
				continue
			}
			v := strings.TrimSpace(record[i])
			values[key] = v
			if v != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		rows = append(rows, domain.Row{
			Values:     values,
			AddressKey: addressKey,
			NameKey:    nameKey,
			MessageKey: messageKey,
		})
	}
	return rows, nil
}

func detectRole(keys []string, aliases map[string]struct{}) string {
	for _, k := range keys {
		if _, ok := aliases[k]; ok {
			return k
		}
	}
	return ""
}

func aliasSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
