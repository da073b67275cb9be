package ts

import (
	"time"

	"github.com/Comcast/gots"
)

// PCR is a Program Clock Reference: a 33-bit 90kHz base plus a 9-bit
// 27MHz extension.
type PCR struct {
	Base      uint64 // 33 bits, 90kHz
	Extension uint16 // 9 bits, 27MHz
}

// Full returns the combined 27MHz value: base*300 + extension.
func (c PCR) Full() uint64 {
	return c.Base*300 + uint64(c.Extension)
}

// Duration converts the full 27MHz PCR value to a time.Duration.
func (c PCR) Duration() time.Duration {
	full := c.Full()
	secs := full / 27_000_000
	nanos := (full % 27_000_000) * 1000 / 27
	return time.Duration(secs)*time.Second + time.Duration(nanos)*time.Nanosecond
}

func readPCR(b []byte) PCR {
	full := gots.ExtractPCR(b)
	return PCR{Base: full / 300, Extension: uint16(full % 300)}
}

// LTW describes the legal_time_window extension sub-field.
type LTW struct {
	Valid  bool
	Offset uint16
}

// Piecewise describes the piecewise_rate extension sub-field.
type Piecewise struct {
	Rate uint32
}

// SeamlessSplice describes the DTS_next_AU extension sub-field.
type SeamlessSplice struct {
	SpliceType       byte
	DTSNextAccessUnit uint64
}

// Extension holds the optional adaptation-field-extension sub-fields.
type Extension struct {
	LTW            *LTW
	Piecewise      *Piecewise
	SeamlessSplice *SeamlessSplice
}

// AdaptationField is a parsed view over a packet's adaptation field.
type AdaptationField struct {
	b []byte // b[0] is the length byte, b[1:] is length-byte worth of data
}

func (a AdaptationField) flags() byte {
	if len(a.b) < 2 {
		return 0
	}
	return a.b[1]
}

func (a AdaptationField) DiscontinuityIndicator() bool { return a.flags()&0x80 != 0 }
func (a AdaptationField) RandomAccessIndicator() bool  { return a.flags()&0x40 != 0 }
func (a AdaptationField) ESPriorityIndicator() bool    { return a.flags()&0x20 != 0 }
func (a AdaptationField) pcrFlag() bool                { return a.flags()&0x10 != 0 }
func (a AdaptationField) opcrFlag() bool               { return a.flags()&0x08 != 0 }
func (a AdaptationField) splicingPointFlag() bool      { return a.flags()&0x04 != 0 }
func (a AdaptationField) privateDataFlag() bool        { return a.flags()&0x02 != 0 }
func (a AdaptationField) extensionFlag() bool          { return a.flags()&0x01 != 0 }

// PCR returns the adaptation field's PCR, if present.
func (a AdaptationField) PCR() (PCR, bool) {
	if !a.pcrFlag() || len(a.b) < 8 {
		return PCR{}, false
	}
	return readPCR(a.b[2:8]), true
}

// OPCR returns the adaptation field's original PCR, if present.
func (a AdaptationField) OPCR() (PCR, bool) {
	if !a.opcrFlag() {
		return PCR{}, false
	}
	off := 2
	if a.pcrFlag() {
		off += 6
	}
	if len(a.b) < off+6 {
		return PCR{}, false
	}
	return readPCR(a.b[off : off+6]), true
}

// SpliceCountdown returns the splice_countdown field, if present.
func (a AdaptationField) SpliceCountdown() (int8, bool) {
	if !a.splicingPointFlag() {
		return 0, false
	}
	off := 2
	if a.pcrFlag() {
		off += 6
	}
	if a.opcrFlag() {
		off += 6
	}
	if len(a.b) <= off {
		return 0, false
	}
	return int8(a.b[off]), true
}

// PrivateData returns the transport_private_data bytes, if present.
func (a AdaptationField) PrivateData() ([]byte, bool) {
	if !a.privateDataFlag() {
		return nil, false
	}
	off := 2
	if a.pcrFlag() {
		off += 6
	}
	if a.opcrFlag() {
		off += 6
	}
	if a.splicingPointFlag() {
		off++
	}
	if len(a.b) <= off {
		return nil, false
	}
	n := int(a.b[off])
	off++
	if len(a.b) < off+n {
		return nil, false
	}
	return a.b[off : off+n], true
}

// Extension returns the adaptation_field_extension sub-fields, if present.
func (a AdaptationField) Extension() (Extension, bool) {
	if !a.extensionFlag() {
		return Extension{}, false
	}
	off := 2
	if a.pcrFlag() {
		off += 6
	}
	if a.opcrFlag() {
		off += 6
	}
	if a.splicingPointFlag() {
		off++
	}
	if a.privateDataFlag() {
		if len(a.b) <= off {
			return Extension{}, false
		}
		n := int(a.b[off])
		off += 1 + n
	}
	if len(a.b) <= off {
		return Extension{}, false
	}
	extLen := int(a.b[off])
	off++
	if len(a.b) < off+extLen || extLen == 0 {
		return Extension{}, false
	}
	v := a.b[off : off+extLen]

	ltwFlag := v[0]&0x80 != 0
	piecewiseFlag := v[0]&0x40 != 0
	seamlessFlag := v[0]&0x20 != 0
	i := 1

	var ext Extension
	if ltwFlag && len(v) >= i+2 {
		valid := v[i]&0x80 != 0
		offset := uint16(v[i]&0x7F)<<8 | uint16(v[i+1])
		ext.LTW = &LTW{Valid: valid, Offset: offset}
		i += 2
	}
	if piecewiseFlag && len(v) >= i+3 {
		rate := uint32(v[i]&0x3F)<<16 | uint32(v[i+1])<<8 | uint32(v[i+2])
		ext.Piecewise = &Piecewise{Rate: rate}
		i += 3
	}
	if seamlessFlag && len(v) >= i+5 {
		spliceType := (v[i] & 0xF0) >> 4
		dts := uint64(v[i]&0x0E) << 29
		dts |= uint64(v[i+1]) << 22
		dts |= uint64(v[i+2]&0xFE) << 14
		dts |= uint64(v[i+3]) << 7
		dts |= uint64(v[i+4]&0xFE) >> 1
		ext.SeamlessSplice = &SeamlessSplice{SpliceType: spliceType, DTSNextAccessUnit: dts}
	}
	return ext, true
}
