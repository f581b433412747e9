// Package packet is the client side of the wire protocol. Every message
// starts with a one byte tag; multi byte values are big endian.
package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Message tags.
const (
	TagWorldLoad  byte = 0x01
	TagGameData   byte = 0x02
	TagPlayerData byte = 0x10
	TagActivate   byte = 0x11
	TagDeactivate byte = 0x12
)

const maxSourceLen = 255

var ErrUnknownTag = errors.New("packet: unknown tag")

// StageError reports the parsing stage at which a malformed packet ran out
// of data or held an impossible value.
type StageError struct {
	Tag    byte
	Stage  string
	Offset int
}

func (e *StageError) Error() string {
	return fmt.Sprintf("packet 0x%02x: malformed %s at byte %d", e.Tag, e.Stage, e.Offset)
}

// Decode parses one inbound message into a *WorldLoad or *GameData.
func Decode(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, &StageError{Stage: "tag"}
	}
	r := &reader{data: data, p: 1, tag: data[0]}
	switch data[0] {
	case TagWorldLoad:
		wl, err := r.worldLoad()
		if err != nil {
			return nil, err
		}
		return wl, nil
	case TagGameData:
		g, err := r.gameData()
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("%w 0x%02x", ErrUnknownTag, data[0])
	}
}

// reader walks a message and remembers the first failure. Reads after a
// failure return zero values.
type reader struct {
	data  []byte
	p     int
	tag   byte
	stage string
	err   error
}

func (r *reader) at(stage string) { r.stage = stage }

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.p+n > len(r.data) {
		r.fail()
		return nil
	}
	b := r.data[r.p : r.p+n]
	r.p += n
	return b
}

func (r *reader) fail() {
	if r.err == nil {
		r.err = &StageError{Tag: r.tag, Stage: r.stage, Offset: r.p}
	}
}

func (r *reader) u8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u16() uint16 {
	if b := r.take(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (r *reader) i16() int16 { return int16(r.u16()) }

func (r *reader) u32() uint32 {
	if b := r.take(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (r *reader) f32() float32 { return math.Float32frombits(r.u32()) }

func (r *reader) str() string {
	n := int(r.u8())
	return string(r.take(n))
}

// count reads a u16 element count and checks that at least size bytes per
// element remain.
func (r *reader) count(size int) int {
	n := int(r.u16())
	if r.err == nil && n*size > len(r.data)-r.p {
		r.fail()
		return 0
	}
	return n
}

func (r *reader) done() error {
	if r.err != nil {
		return r.err
	}
	if r.p != len(r.data) {
		r.at("trailer")
		r.fail()
		return r.err
	}
	return nil
}

// writer is the encoding counterpart of reader.
type writer struct {
	buf []byte
}

func (w *writer) u8(v uint8)    { w.buf = append(w.buf, v) }
func (w *writer) u16(v uint16)  { w.buf = binary.BigEndian.AppendUint16(w.buf, v) }
func (w *writer) i16(v int16)   { w.u16(uint16(v)) }
func (w *writer) u32(v uint32)  { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }
func (w *writer) f32(v float32) { w.u32(math.Float32bits(v)) }

func (w *writer) str(s string) {
	if len(s) > maxSourceLen {
		s = s[:maxSourceLen]
	}
	w.u8(uint8(len(s)))
	w.buf = append(w.buf, s...)
}

// PlayerData is the per tick input sent to the server.
type PlayerData struct {
	Tick      uint32
	MoveX     float32
	MoveY     float32
	Rotation  float32
	Attacking bool
}

func EncodePlayerData(d PlayerData) []byte {
	w := &writer{buf: make([]byte, 0, 18)}
	w.u8(TagPlayerData)
	w.u32(d.Tick)
	w.f32(d.MoveX)
	w.f32(d.MoveY)
	w.f32(d.Rotation)
	var flags uint8
	if d.Attacking {
		flags |= 1
	}
	w.u8(flags)
	return w.buf
}

// EncodeActivate tells the server the client is focused again.
func EncodeActivate() []byte { return []byte{TagActivate} }

// EncodeDeactivate tells the server the client stopped simulating.
func EncodeDeactivate() []byte { return []byte{TagDeactivate} }

// DecodePlayerData is the server side decoding of EncodePlayerData.
func DecodePlayerData(data []byte) (PlayerData, error) {
	if len(data) == 0 {
		return PlayerData{}, &StageError{Stage: "tag"}
	}
	if data[0] != TagPlayerData {
		return PlayerData{}, fmt.Errorf("%w 0x%02x", ErrUnknownTag, data[0])
	}
	r := &reader{data: data, p: 1, tag: data[0]}
	r.at("player data")
	d := PlayerData{Tick: r.u32(), MoveX: r.f32(), MoveY: r.f32(), Rotation: r.f32()}
	d.Attacking = r.u8()&1 != 0
	if err := r.done(); err != nil {
		return PlayerData{}, err
	}
	return d, nil
}
