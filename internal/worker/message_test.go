package worker

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMessageArrayForm(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"init", InitMessage([]byte{1, 2}, []string{"fork", "clear"}), `["init","AQI=",["fork","clear"]]`},
		{"init without imports", InitMessage(nil, nil), `["init",null,[]]`},
		{"data", DataMessage([]byte{0, 1}), `["data","AAE="]`},
		{"init complete", InitCompleteMessage(), `["init_complete"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := tt.msg.MarshalJSON()
			if err != nil {
				t.Fatal(err)
			}
			if string(b) != tt.want {
				t.Errorf("MarshalJSON() = %s, want %s", b, tt.want)
			}
		})
	}
}

func TestMessageUnmarshal(t *testing.T) {
	var msg Message
	if err := json.Unmarshal([]byte(`["init","AQI=",["fork"]]`), &msg); err != nil {
		t.Fatal(err)
	}
	want := Message{Type: TypeInit, Module: []byte{1, 2}, Imports: []string{"fork"}}
	if diff := cmp.Diff(want, msg); diff != "" {
		t.Errorf("init mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{`[]`, `["data"]`, `["init","AQI="]`, `["hello"]`, `{"type":"data"}`} {
		var m Message
		if err := json.Unmarshal([]byte(bad), &m); err == nil {
			t.Errorf("expected %s to be rejected", bad)
		}
	}

	if _, err := (Message{Type: "bogus"}).MarshalJSON(); err == nil {
		t.Error("unknown types should not marshal")
	}
}
