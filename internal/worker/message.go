// Package worker runs secondary copies of the module on their own goroutines
// and relays byte buffers between them and the main instance.
package worker

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MessageType is the first element of every worker message.
type MessageType string

const (
	TypeInit         MessageType = "init"
	TypeData         MessageType = "data"
	TypeInitComplete MessageType = "init_complete"
)

// Message is one message on a worker channel.
//
// init carries the module bytes and the host's import names, data carries a
// byte buffer and init_complete carries nothing.
type Message struct {
	Type    MessageType
	Module  []byte
	Imports []string
	Data    []byte
}

// InitMessage builds an init message.
func InitMessage(module []byte, imports []string) Message {
	return Message{Type: TypeInit, Module: module, Imports: imports}
}

// DataMessage builds a data message.
func DataMessage(data []byte) Message {
	return Message{Type: TypeData, Data: data}
}

// InitCompleteMessage builds the readiness reply.
func InitCompleteMessage() Message {
	return Message{Type: TypeInitComplete}
}

// MarshalJSON renders the message in its array form, e.g. ["data", "AAEC"].
func (m Message) MarshalJSON() ([]byte, error) {
	switch m.Type {
	case TypeInit:
		imports := m.Imports
		if imports == nil {
			imports = []string{}
		}
		return json.Marshal([]any{m.Type, m.Module, imports})
	case TypeData:
		return json.Marshal([]any{m.Type, m.Data})
	case TypeInitComplete:
		return json.Marshal([]any{m.Type})
	}
	return nil, fmt.Errorf("unknown worker message type %q", m.Type)
}

// UnmarshalJSON parses the array form.
func (m *Message) UnmarshalJSON(b []byte) error {
	var parts []jsoniter.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return err
	}
	if len(parts) == 0 {
		return fmt.Errorf("empty worker message")
	}

	var typ MessageType
	if err := json.Unmarshal(parts[0], &typ); err != nil {
		return err
	}

	out := Message{Type: typ}
	switch typ {
	case TypeInit:
		if len(parts) != 3 {
			return fmt.Errorf("init message has %d elements, want 3", len(parts))
		}
		if err := json.Unmarshal(parts[1], &out.Module); err != nil {
			return err
		}
		if err := json.Unmarshal(parts[2], &out.Imports); err != nil {
			return err
		}
	case TypeData:
		if len(parts) != 2 {
			return fmt.Errorf("data message has %d elements, want 2", len(parts))
		}
		if err := json.Unmarshal(parts[1], &out.Data); err != nil {
			return err
		}
	case TypeInitComplete:
	default:
		return fmt.Errorf("unknown worker message type %q", typ)
	}

	*m = out
	return nil
}
