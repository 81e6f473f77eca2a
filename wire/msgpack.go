package wire

import (
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

type msgpackCodec struct{}

var Msgpack Codec = msgpackCodec{}

func (msgpackCodec) Name() string     { return "msgpack" }
func (msgpackCodec) MessageType() int { return websocket.BinaryMessage }

func (msgpackCodec) EncodeState(s State) ([]byte, error) {
	return msgpack.Marshal(&s)
}

func (msgpackCodec) DecodeState(data []byte) (State, error) {
	var f stateFrame
	err := msgpack.Unmarshal(data, &f)
	return checkState(f, err)
}

func (msgpackCodec) EncodeInput(in Input) ([]byte, error) {
	return msgpack.Marshal(&in)
}

func (msgpackCodec) DecodeInput(data []byte) (Input, error) {
	var in Input
	err := msgpack.Unmarshal(data, &in)
	return checkInput(in, err)
}
