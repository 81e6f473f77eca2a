package wire

import (
	"math"

	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the protobuf messages:
//
//	message Paddle { double y = 1; }
//	message Ball   { double x = 1; double y = 2; }
//	message Score  { int64 player1 = 1; int64 player2 = 2; }
//	message State  { Paddle player1 = 1; Paddle player2 = 2; Ball ball = 3; Score score = 4; uint64 tick = 5; }
//	message Input  { string player = 1; string direction = 2; optional bool pressed = 3; }
const (
	fieldStatePlayer1 protowire.Number = 1
	fieldStatePlayer2 protowire.Number = 2
	fieldStateBall    protowire.Number = 3
	fieldStateScore   protowire.Number = 4
	fieldStateTick    protowire.Number = 5

	fieldPaddleY protowire.Number = 1

	fieldX protowire.Number = 1
	fieldY protowire.Number = 2

	fieldScorePlayer1 protowire.Number = 1
	fieldScorePlayer2 protowire.Number = 2

	fieldInputPlayer    protowire.Number = 1
	fieldInputDirection protowire.Number = 2
	fieldInputPressed   protowire.Number = 3
)

type protoCodec struct{}

var Proto Codec = protoCodec{}

func (protoCodec) Name() string     { return "proto" }
func (protoCodec) MessageType() int { return websocket.BinaryMessage }

func (protoCodec) EncodeState(s State) ([]byte, error) {
	var b []byte

	var paddle1 []byte
	paddle1 = appendDouble(paddle1, fieldPaddleY, s.Player1.Y)
	b = appendMessage(b, fieldStatePlayer1, paddle1)

	var paddle2 []byte
	paddle2 = appendDouble(paddle2, fieldPaddleY, s.Player2.Y)
	b = appendMessage(b, fieldStatePlayer2, paddle2)

	var ball []byte
	ball = appendDouble(ball, fieldX, s.Ball.X)
	ball = appendDouble(ball, fieldY, s.Ball.Y)
	b = appendMessage(b, fieldStateBall, ball)

	if s.Score != nil {
		var score []byte
		score = protowire.AppendTag(score, fieldScorePlayer1, protowire.VarintType)
		score = protowire.AppendVarint(score, uint64(int64(s.Score.Player1)))
		score = protowire.AppendTag(score, fieldScorePlayer2, protowire.VarintType)
		score = protowire.AppendVarint(score, uint64(int64(s.Score.Player2)))
		b = appendMessage(b, fieldStateScore, score)
	}
	if s.Tick != nil {
		b = protowire.AppendTag(b, fieldStateTick, protowire.VarintType)
		b = protowire.AppendVarint(b, *s.Tick)
	}
	return b, nil
}

func (protoCodec) DecodeState(data []byte) (State, error) {
	var f stateFrame
	err := consumeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldStatePlayer1 && typ == protowire.BytesType:
			f.Player1 = &PaddlePosition{}
			return consumeMessage(b, paddleField(f.Player1))
		case num == fieldStatePlayer2 && typ == protowire.BytesType:
			f.Player2 = &PaddlePosition{}
			return consumeMessage(b, paddleField(f.Player2))
		case num == fieldStateBall && typ == protowire.BytesType:
			f.Ball = &BallPosition{}
			return consumeMessage(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case fieldX:
					return consumeDouble(typ, b, &f.Ball.X)
				case fieldY:
					return consumeDouble(typ, b, &f.Ball.Y)
				}
				return 0, nil
			})
		case num == fieldStateScore && typ == protowire.BytesType:
			f.Score = &ScoreBoard{}
			return consumeMessage(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case fieldScorePlayer1:
					return consumeInt(typ, b, &f.Score.Player1)
				case fieldScorePlayer2:
					return consumeInt(typ, b, &f.Score.Player2)
				}
				return 0, nil
			})
		case num == fieldStateTick && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			f.Tick = &v
			return n, nil
		}
		return 0, nil
	})
	return checkState(f, err)
}

func paddleField(p *PaddlePosition) fieldFunc {
	return func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == fieldPaddleY {
			return consumeDouble(typ, b, &p.Y)
		}
		return 0, nil
	}
}

func (protoCodec) EncodeInput(in Input) ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, fieldInputPlayer, protowire.BytesType)
	b = protowire.AppendString(b, in.Player)
	b = protowire.AppendTag(b, fieldInputDirection, protowire.BytesType)
	b = protowire.AppendString(b, in.Direction)
	if in.Pressed != nil {
		b = protowire.AppendTag(b, fieldInputPressed, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(*in.Pressed))
	}
	return b, nil
}

func (protoCodec) DecodeInput(data []byte) (Input, error) {
	var in Input
	err := consumeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldInputPlayer && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			in.Player = v
			return n, nil
		case num == fieldInputDirection && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			in.Direction = v
			return n, nil
		case num == fieldInputPressed && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			pressed := protowire.DecodeBool(v)
			in.Pressed = &pressed
			return n, nil
		}
		return 0, nil
	})
	return checkInput(in, err)
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

// fieldFunc consumes the value of one field and returns the bytes used.
// Returning 0 with a nil error leaves the field to be skipped.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func consumeFields(b []byte, field fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n, err := field(num, typ, b)
		if err != nil {
			return err
		}
		if n == 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
		}
		b = b[n:]
	}
	return nil
}

func consumeMessage(b []byte, field fieldFunc) (int, error) {
	msg, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, protowire.ParseError(n)
	}
	return n, consumeFields(msg, field)
}

func consumeDouble(typ protowire.Type, b []byte, dst *float64) (int, error) {
	if typ != protowire.Fixed64Type {
		return 0, nil
	}
	v, n := protowire.ConsumeFixed64(b)
	if n < 0 {
		return n, protowire.ParseError(n)
	}
	*dst = math.Float64frombits(v)
	return n, nil
}

func consumeInt(typ protowire.Type, b []byte, dst *int) (int, error) {
	if typ != protowire.VarintType {
		return 0, nil
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return n, protowire.ParseError(n)
	}
	*dst = int(int64(v))
	return n, nil
}
