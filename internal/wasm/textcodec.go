package wasm

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// Text codec modes accepted by NegotiateTextCodec.
const (
	CodecAuto     = "auto"
	CodecFallback = "fallback"
)

// TextCodec converts between host strings and the UTF-8 bytes stored in
// linear memory.
type TextCodec interface {
	Name() string
	Encode(s string) []byte
	Decode(b []byte) string
}

// NegotiateTextCodec picks the codec once at startup. "auto" (or empty) uses
// the x/text decoder, "fallback" forces the hand-rolled one.
func NegotiateTextCodec(mode string) (TextCodec, error) {
	switch mode {
	case "", CodecAuto:
		return xtextCodec{}, nil
	case CodecFallback:
		return fallbackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown text codec %q (must be one of: auto, fallback)", mode)
	}
}

// xtextCodec replaces ill-formed input with U+FFFD, matching what a browser
// TextDecoder does.
type xtextCodec struct{}

func (xtextCodec) Name() string { return CodecAuto }

func (xtextCodec) Encode(s string) []byte {
	return []byte(s)
}

func (xtextCodec) Decode(b []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return fallbackCodec{}.Decode(b)
	}
	return string(out)
}

// fallbackCodec walks runes by hand.
type fallbackCodec struct{}

func (fallbackCodec) Name() string { return CodecFallback }

func (fallbackCodec) Encode(s string) []byte {
	buf := make([]byte, 0, len(s))
	for _, r := range s {
		buf = utf8.AppendRune(buf, r)
	}
	return buf
}

func (fallbackCodec) Decode(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		sb.WriteRune(r)
		b = b[size:]
	}
	return sb.String()
}
