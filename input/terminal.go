package input

import (
	"bufio"
	"io"
	"unicode"
	"unicode/utf8"
)

// Keys produced by DecodeKeys that have no binding of their own.
const (
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
	KeyEscape     = "Escape"
	KeyCtrlC      = "Ctrl+C"
)

const (
	esc   = 27
	ctrlC = 3
)

// maxSequence bounds a pending escape sequence. Longer input is not a key.
const maxSequence = 16

// DecodeKeys splits raw terminal bytes into key names. Letters are lowered so
// that caps lock does not change the binding. An escape sequence cut off at
// the end of buf is dropped; KeyDecoder carries it into the next read instead.
func DecodeKeys(buf []byte) []string {
	var d KeyDecoder
	return d.Decode(buf)
}

// KeyDecoder decodes a terminal byte stream read in chunks. A trailing
// "ESC [" or "ESC O" sequence is held until the next call completes it.
type KeyDecoder struct {
	pending []byte
}

func (d *KeyDecoder) Decode(buf []byte) []string {
	data := buf
	if len(d.pending) > 0 {
		data = append(d.pending, buf...)
		d.pending = nil
	}

	var keys []string
	for i := 0; i < len(data); {
		switch {
		case data[i] == esc:
			n, key, ok := escapeSequence(data[i:])
			if !ok {
				d.pending = append([]byte(nil), data[i:]...)
				return keys
			}
			if key != "" {
				keys = append(keys, key)
			}
			i += n
		case data[i] == ctrlC:
			keys = append(keys, KeyCtrlC)
			i++
		default:
			r, size := utf8.DecodeRune(data[i:])
			if r != utf8.RuneError && unicode.IsPrint(r) {
				keys = append(keys, string(unicode.ToLower(r)))
			}
			i += size
		}
	}
	return keys
}

// escapeSequence decodes the sequence at the start of b, which begins with
// ESC. It returns the bytes used and the key, if any. ok is false when b ends
// inside a CSI or SS3 sequence.
func escapeSequence(b []byte) (n int, key string, ok bool) {
	if len(b) == 1 || (b[1] != '[' && b[1] != 'O') {
		return 1, KeyEscape, true
	}

	// Parameter and intermediate bytes, as in "ESC [ 1 ; 5 A".
	j := 2
	for j < len(b) && b[j] >= 0x20 && b[j] <= 0x3f {
		j++
	}
	if j == len(b) {
		if len(b) > maxSequence {
			return len(b), "", true
		}
		return 0, "", false
	}
	if b[j] < 0x40 || b[j] > 0x7e {
		return j, "", true
	}

	switch b[j] {
	case 'A':
		key = KeyArrowUp
	case 'B':
		key = KeyArrowDown
	case 'C':
		key = KeyArrowRight
	case 'D':
		key = KeyArrowLeft
	}
	return j + 1, key, true
}

// ReadKeys reads r until EOF or error and sends every decoded key on out.
// It closes out when it returns.
func ReadKeys(r io.Reader, out chan<- string) error {
	defer close(out)

	var d KeyDecoder
	br := bufio.NewReader(r)
	buf := make([]byte, 64)
	for {
		n, err := br.Read(buf)
		for _, key := range d.Decode(buf[:n]) {
			out <- key
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
