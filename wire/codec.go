package wire

import (
	"fmt"
	"sort"
	"strings"
)

// Codec encodes and decodes messages for one websocket frame format.
// Decoders validate what they return.
type Codec interface {
	Name() string
	// MessageType is the websocket frame type (text or binary).
	MessageType() int
	EncodeState(State) ([]byte, error)
	DecodeState([]byte) (State, error)
	EncodeInput(Input) ([]byte, error)
	DecodeInput([]byte) (Input, error)
}

var codecs = map[string]Codec{
	JSON.Name():    JSON,
	Proto.Name():   Proto,
	Msgpack.Name(): Msgpack,
}

// ByName returns the codec registered under name (case-insensitive).
func ByName(name string) (Codec, error) {
	c, ok := codecs[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrUnknownCodec, name, strings.Join(Names(), ", "))
	}
	return c, nil
}

func Names() []string {
	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// checkState turns a decoded frame into a State. Frames missing a paddle or
// the ball are malformed.
func checkState(f stateFrame, err error) (State, error) {
	if err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	s, err := f.state()
	if err != nil {
		return State{}, err
	}
	if err := s.Validate(); err != nil {
		return State{}, err
	}
	return s, nil
}

func checkInput(in Input, err error) (Input, error) {
	if err != nil {
		return Input{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := in.Resolve(); err != nil {
		return Input{}, err
	}
	return in, nil
}
