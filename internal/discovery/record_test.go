package discovery

import (
	"errors"
	"testing"
)

func TestRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		record  Record
		wantErr error
	}{
		{
			name:    "valid identifier",
			record:  Record{ID: "0x000000000015243f"},
			wantErr: nil,
		},
		{
			name:    "empty identifier",
			record:  Record{},
			wantErr: ErrMissingID,
		},
		{
			name:    "whitespace identifier",
			record:  Record{ID: "   "},
			wantErr: ErrMissingID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.record.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Record.Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecord_Attr(t *testing.T) {
	rec := Record{
		Attributes: map[string]string{
			"location": "yeelight://192.168.1.239:55443",
			"power":    "on",
		},
	}

	if got := rec.Attr("Location"); got != "yeelight://192.168.1.239:55443" {
		t.Errorf("Record.Attr(Location) = %v, want location", got)
	}
	if got := rec.Attr("missing"); got != "" {
		t.Errorf("Record.Attr(missing) = %v, want empty string", got)
	}

	var empty Record
	if got := empty.Attr("power"); got != "" {
		t.Errorf("Record.Attr() with nil map = %v, want empty string", got)
	}
}

func TestKind_String(t *testing.T) {
	if KindResponse.String() != "response" {
		t.Errorf("KindResponse.String() = %v", KindResponse.String())
	}
	if KindAdvertise.String() != "advertise-alive" {
		t.Errorf("KindAdvertise.String() = %v", KindAdvertise.String())
	}
	if Kind(7).String() != "Kind(7)" {
		t.Errorf("Kind(7).String() = %v", Kind(7).String())
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	cause := errors.New("address already in use")
	err := &TransportError{Transport: "ssdp", Op: "bind", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("TransportError should unwrap to its cause")
	}
	want := "ssdp transport: bind failed: address already in use"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
