package template

import "testing"

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		tmpl     string
		row      map[string]string
		reserved map[string]struct{}
		want     string
	}{
		{
			name: "substitutes known key",
			tmpl: "Hi {{name}}",
			row:  map[string]string{"name": "Sam"},
			want: "Hi Sam",
		},
		{
			name: "name falls back to there",
			tmpl: "Hi {{name}}",
			row:  map[string]string{},
			want: "Hi there",
		},
		{
			name: "unknown key renders empty",
			tmpl: "Hi {{foo}}!",
			row:  map[string]string{},
			want: "Hi !",
		},
		{
			name: "case insensitive token and key",
			tmpl: "Hello {{NAME}}, your city is {{City}}",
			row:  map[string]string{"Name": "Ana", "CITY": "Pune"},
			want: "Hello Ana, your city is Pune",
		},
		{
			name: "every occurrence replaced",
			tmpl: "{{name}} {{name}} {{name}}",
			row:  map[string]string{"name": "x"},
			want: "x x x",
		},
		{
			name:     "reserved raw column loses to seeded value",
			tmpl:     "Call {{number}}",
			row:      map[string]string{"number": "9876543210", "phone_number": "ignored"},
			reserved: ReservedKeys("phone_number"),
			want:     "Call 9876543210",
		},
		{
			name: "whitespace inside token tolerated",
			tmpl: "Hi {{ name }}",
			row:  map[string]string{"name": "Sam"},
			want: "Hi Sam",
		},
		{
			name: "empty value falls back for name",
			tmpl: "Hi {{name}}",
			row:  map[string]string{"name": ""},
			want: "Hi there",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render(tt.tmpl, tt.row, tt.reserved)
			if got != tt.want {
				t.Fatalf("Render(%q) = %q, want %q", tt.tmpl, got, tt.want)
			}
		})
	}
}

func TestRenderIsPure(t *testing.T) {
	row := map[string]string{"name": "Sam"}
	before := len(row)
	_ = Render("Hi {{name}} {{foo}}", row, nil)
	if len(row) != before {
		t.Fatalf("Render mutated its input row")
	}
}
