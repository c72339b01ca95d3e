package protocol

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DecodeClient parses a client message.
func DecodeClient(b []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(b, &msg); err != nil {
		return ClientMessage{}, err
	}
	if msg.Type == "" {
		return ClientMessage{}, fmt.Errorf("message has no type")
	}
	return msg, nil
}

// EncodeServer renders a server message.
func EncodeServer(msg ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// EncodeClient renders a client message.
func EncodeClient(msg ClientMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeServer parses a server message.
func DecodeServer(b []byte) (ServerMessage, error) {
	var msg ServerMessage
	err := json.Unmarshal(b, &msg)
	return msg, err
}
