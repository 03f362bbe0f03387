package tile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image/color"
	"math"
)

// Version is the only serialization version read and written.
const Version = 6

var (
	// ErrUnsupportedVersion is returned for records of any other version.
	ErrUnsupportedVersion = errors.New("tile: unsupported version")
	// ErrTruncated is returned when a record ends early.
	ErrTruncated = errors.New("tile: truncated record")
)

// Flag bits of the serialized form. Unknown bits are ignored on decode.
const (
	FlagBackfaceCulling    = 0x01
	FlagTileableHorizontal = 0x02
	FlagTileableVertical   = 0x04
	FlagHasColor           = 0x08
	FlagHasScale           = 0x10
	FlagHasAlignStyle      = 0x20
)

// MarshalBinary encodes s as a version 6 record. Multi-byte fields are big
// endian and the name is a u16 byte length followed by UTF-8.
func (s Spec) MarshalBinary() ([]byte, error) {
	if len(s.Name) > math.MaxUint16 {
		return nil, fmt.Errorf("tile: name of %d bytes does not fit", len(s.Name))
	}
	b := make([]byte, 0, 16+len(s.Name))
	b = append(b, Version)
	b = binary.BigEndian.AppendUint16(b, uint16(len(s.Name)))
	b = append(b, s.Name...)

	b = append(b, byte(s.Animation.Type))
	switch s.Animation.Type {
	case AnimationVerticalFrames:
		b = binary.BigEndian.AppendUint16(b, s.Animation.AspectW)
		b = binary.BigEndian.AppendUint16(b, s.Animation.AspectH)
		b = binary.BigEndian.AppendUint32(b, math.Float32bits(s.Animation.Length))
	case AnimationSheet:
		b = append(b, s.Animation.FramesW, s.Animation.FramesH)
		b = binary.BigEndian.AppendUint32(b, math.Float32bits(s.Animation.FrameLength))
	}

	var flags uint16
	if s.BackfaceCulling {
		flags |= FlagBackfaceCulling
	}
	if s.TileableHorizontal {
		flags |= FlagTileableHorizontal
	}
	if s.TileableVertical {
		flags |= FlagTileableVertical
	}
	if s.HasColor {
		flags |= FlagHasColor
	}
	if s.Scale > 0 {
		flags |= FlagHasScale
	}
	if s.AlignStyle != AlignNode {
		flags |= FlagHasAlignStyle
	}
	b = binary.BigEndian.AppendUint16(b, flags)
	if s.HasColor {
		b = append(b, s.Color.R, s.Color.G, s.Color.B)
	}
	if s.Scale > 0 {
		b = append(b, s.Scale)
	}
	if s.AlignStyle != AlignNode {
		b = append(b, byte(s.AlignStyle))
	}
	return b, nil
}

// UnmarshalBinary decodes a record written by MarshalBinary.
func (s *Spec) UnmarshalBinary(data []byte) error {
	r := &reader{data: data}
	version := r.readByte()
	if r.short {
		return ErrTruncated
	}
	if version != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	var out Spec
	out.Name = r.readStr(int(r.readU16()))
	out.Animation.Type = AnimationType(r.readByte())
	switch out.Animation.Type {
	case AnimationNone:
	case AnimationVerticalFrames:
		out.Animation.AspectW = r.readU16()
		out.Animation.AspectH = r.readU16()
		out.Animation.Length = r.readF32()
	case AnimationSheet:
		out.Animation.FramesW = r.readByte()
		out.Animation.FramesH = r.readByte()
		out.Animation.FrameLength = r.readF32()
	default:
		return fmt.Errorf("tile: unknown animation type %d", out.Animation.Type)
	}

	flags := r.readU16()
	out.BackfaceCulling = flags&FlagBackfaceCulling != 0
	out.TileableHorizontal = flags&FlagTileableHorizontal != 0
	out.TileableVertical = flags&FlagTileableVertical != 0
	if flags&FlagHasColor != 0 {
		out.HasColor = true
		out.Color = color.NRGBA{R: r.readByte(), G: r.readByte(), B: r.readByte(), A: 255}
	}
	if flags&FlagHasScale != 0 {
		out.Scale = r.readByte()
	}
	if flags&FlagHasAlignStyle != 0 {
		out.AlignStyle = AlignStyle(r.readByte())
	}
	if r.short {
		return ErrTruncated
	}
	*s = out
	return nil
}

// reader walks a big-endian record. Reading past the end yields zero values
// and sets short.
type reader struct {
	data  []byte
	off   int
	short bool
}

func (r *reader) take(n int) []byte {
	if r.off+n > len(r.data) {
		r.off = len(r.data)
		r.short = true
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) readByte() byte {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) readU16() uint16 {
	if b := r.take(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (r *reader) readF32() float32 {
	if b := r.take(4); b != nil {
		return math.Float32frombits(binary.BigEndian.Uint32(b))
	}
	return 0
}

func (r *reader) readStr(n int) string {
	return string(r.take(n))
}
