// SPDX-License-Identifier: GPL-3.0-or-later

// Package m3ua implements a minimal M3UA (RFC 4666) ASP Up probe.
//
// After a successful connect, sending an ASPUP message and waiting for
// the ASPUP_ACK tells an M3UA signalling gateway apart from any other
// service listening on the same port.
package m3ua

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"
)

// Version is the only M3UA protocol version.
const Version = 1

// HeaderLen is the length of the common message header.
const HeaderLen = 8

// Message classes.
const (
	ClassMGMT  = 0
	ClassTrans = 1
	ClassSSNM  = 2
	ClassASPSM = 3
	ClassASPTM = 4
	ClassRKM   = 9
)

// Message types for [ClassASPSM].
const (
	TypeASPUP    = 1
	TypeASPDN    = 2
	TypeBEAT     = 3
	TypeASPUPAck = 4
	TypeASPDNAck = 5
	TypeBEATAck  = 6
)

// Message types for [ClassMGMT].
const (
	TypeERR  = 0
	TypeNTFY = 1
)

var (
	// ErrShortMessage indicates that a message is shorter than the header.
	ErrShortMessage = errors.New("m3ua: message too short")

	// ErrVersion indicates an unsupported protocol version.
	ErrVersion = errors.New("m3ua: unsupported version")

	// ErrLength indicates an invalid message length field.
	ErrLength = errors.New("m3ua: invalid message length")
)

// Header is the M3UA common message header.
type Header struct {
	Version uint8
	Class   uint8
	Type    uint8
	Length  uint32
}

// AppendBinary appends the wire representation of h to b.
func (h Header) AppendBinary(b []byte) ([]byte, error) {
	b = append(b, h.Version, 0, h.Class, h.Type)
	return binary.BigEndian.AppendUint32(b, h.Length), nil
}

// String returns the message name (e.g., "ASPSM/ASPUP_ACK").
func (h Header) String() string {
	return className(h.Class) + "/" + typeName(h.Class, h.Type)
}

// className returns the name of a message class.
func className(class uint8) string {
	switch class {
	case ClassMGMT:
		return "MGMT"
	case ClassTrans:
		return "TRANSFER"
	case ClassSSNM:
		return "SSNM"
	case ClassASPSM:
		return "ASPSM"
	case ClassASPTM:
		return "ASPTM"
	case ClassRKM:
		return "RKM"
	default:
		return fmt.Sprintf("CLASS(%d)", class)
	}
}

// typeName returns the name of a message type within its class.
func typeName(class, mtype uint8) string {
	switch {
	case class == ClassMGMT && mtype == TypeERR:
		return "ERR"
	case class == ClassMGMT && mtype == TypeNTFY:
		return "NTFY"
	case class == ClassASPSM:
		if name, ok := aspsmTypes[mtype]; ok {
			return name
		}
	}
	return fmt.Sprintf("TYPE(%d)", mtype)
}

var aspsmTypes = map[uint8]string{
	TypeASPUP:    "ASPUP",
	TypeASPDN:    "ASPDN",
	TypeBEAT:     "BEAT",
	TypeASPUPAck: "ASPUP_ACK",
	TypeASPDNAck: "ASPDN_ACK",
	TypeBEATAck:  "BEAT_ACK",
}

// BuildASPUP returns an ASP Up message without parameters.
func BuildASPUP() []byte {
	msg, _ := Header{
		Version: Version,
		Class:   ClassASPSM,
		Type:    TypeASPUP,
		Length:  HeaderLen,
	}.AppendBinary(make([]byte, 0, HeaderLen))
	return msg
}

// ParseHeader parses the common header at the beginning of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrShortMessage, len(b))
	}
	h := Header{
		Version: b[0],
		Class:   b[2],
		Type:    b[3],
		Length:  binary.BigEndian.Uint32(b[4:8]),
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	if h.Length < HeaderLen {
		return Header{}, fmt.Errorf("%w: %d", ErrLength, h.Length)
	}
	return h, nil
}

// Reply is a message received in response to a probe.
type Reply struct {
	// Header is the parsed message header.
	Header Header

	// Raw contains the bytes we received.
	Raw []byte

	// LocalAddr is the local endpoint of the association, when known.
	LocalAddr netip.AddrPort
}

// IsASPUpAck returns whether the reply is an ASPUP_ACK.
func (r *Reply) IsASPUpAck() bool {
	return r.Header.Class == ClassASPSM && r.Header.Type == TypeASPUPAck
}
