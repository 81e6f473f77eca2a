package wire

import (
	"encoding/json"

	"github.com/gorilla/websocket"
)

type jsonCodec struct{}

// JSON sends text frames; it is what browser clients speak.
var JSON Codec = jsonCodec{}

func (jsonCodec) Name() string     { return "json" }
func (jsonCodec) MessageType() int { return websocket.TextMessage }

func (jsonCodec) EncodeState(s State) ([]byte, error) {
	return json.Marshal(s)
}

func (jsonCodec) DecodeState(data []byte) (State, error) {
	var f stateFrame
	err := json.Unmarshal(data, &f)
	return checkState(f, err)
}

func (jsonCodec) EncodeInput(in Input) ([]byte, error) {
	return json.Marshal(in)
}

func (jsonCodec) DecodeInput(data []byte) (Input, error) {
	var in Input
	err := json.Unmarshal(data, &in)
	return checkInput(in, err)
}
