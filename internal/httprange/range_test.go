package httprange

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	const size = 1000

	tests := []struct {
		name    string
		header  string
		want    Range
		wantOK  bool
		wantErr error
	}{
		{name: "empty", header: "", wantOK: false},
		{name: "closed", header: "bytes=100-199", want: Range{100, 199}, wantOK: true},
		{name: "open ended", header: "bytes=900-", want: Range{900, 999}, wantOK: true},
		{name: "end clamped", header: "bytes=990-5000", want: Range{990, 999}, wantOK: true},
		{name: "suffix", header: "bytes=-100", want: Range{900, 999}, wantOK: true},
		{name: "suffix larger than size", header: "bytes=-5000", want: Range{0, 999}, wantOK: true},
		{name: "first of many", header: "bytes=0-9, 20-29", want: Range{0, 9}, wantOK: true},
		{name: "start past end", header: "bytes=1000-", wantOK: true, wantErr: ErrUnsatisfiable},
		{name: "zero suffix", header: "bytes=-0", wantOK: true, wantErr: ErrUnsatisfiable},
		{name: "other unit", header: "items=0-1", wantOK: false},
		{name: "inverted", header: "bytes=200-100", wantOK: false},
		{name: "garbage", header: "bytes=abc-def", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := Parse(tt.header, size)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err == nil && ok && got != tt.want {
				t.Errorf("range = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRangeHeaders(t *testing.T) {
	r := Range{Start: 100, End: 199}
	if r.Length() != 100 {
		t.Errorf("Length = %d", r.Length())
	}
	if got := r.ContentRange(1000); got != "bytes 100-199/1000" {
		t.Errorf("ContentRange = %q", got)
	}
	if got := r.Header(); got != "bytes=100-199" {
		t.Errorf("Header = %q", got)
	}
	if got := Unsatisfied(1000); got != "bytes */1000" {
		t.Errorf("Unsatisfied = %q", got)
	}
}
