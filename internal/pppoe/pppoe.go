// Package pppoe builds and parses PPPoE (RFC 2516) Discovery and Session
// frames, including the Ethernet header they ride on.
//
// Wire layout grounded on the original pppoe.c's struct pppoe_packet / struct
// pppoe_tag, with the struct-overlay read replaced by explicit big-endian
// field access (no implementation-defined bit-field layout, no unaligned
// pointer cast).
package pppoe

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// EtherType values used to distinguish Discovery from Session traffic (§3).
const (
	EtherTypeDiscovery uint16 = 0x8863
	EtherTypeSession   uint16 = 0x8864
)

// Code is a PPPoE packet code, carried in the second octet of the PPPoE
// header.
type Code uint8

// Canonical code values (§3). These are the exact wire octets; callers must
// not substitute other values.
const (
	CodeSession Code = 0x00
	CodePADO    Code = 0x07
	CodePADI    Code = 0x09
	CodePADR    Code = 0x19
	CodePADS    Code = 0x65
	CodePADT    Code = 0xa7
)

func (c Code) String() string {
	switch c {
	case CodeSession:
		return "SESS"
	case CodePADI:
		return "PADI"
	case CodePADO:
		return "PADO"
	case CodePADR:
		return "PADR"
	case CodePADS:
		return "PADS"
	case CodePADT:
		return "PADT"
	default:
		return fmt.Sprintf("Code(0x%02x)", uint8(c))
	}
}

// TagType identifies a Discovery tag's meaning (§3).
type TagType uint16

const (
	TagEndOfList        TagType = 0x0000
	TagServiceName      TagType = 0x0101
	TagACName           TagType = 0x0102
	TagHostUniq         TagType = 0x0103
	TagACCookie         TagType = 0x0104
	TagVendorSpecific   TagType = 0x0105
	TagRelaySessionID   TagType = 0x0110
	TagServiceNameError TagType = 0x0201
	TagACSystemError    TagType = 0x0202
	TagGenericError     TagType = 0x0203
)

func (t TagType) String() string {
	switch t {
	case TagEndOfList:
		return "End-Of-List"
	case TagServiceName:
		return "Service-Name"
	case TagACName:
		return "AC-Name"
	case TagHostUniq:
		return "Host-Uniq"
	case TagACCookie:
		return "AC-Cookie"
	case TagVendorSpecific:
		return "Vendor-Specific"
	case TagRelaySessionID:
		return "Relay-Session-ID"
	case TagServiceNameError:
		return "Service-Name-Error"
	case TagACSystemError:
		return "AC-System-Error"
	case TagGenericError:
		return "Generic-Error"
	default:
		return fmt.Sprintf("Tag(0x%04x)", uint16(t))
	}
}

const (
	macLen         = 6
	ethHeaderLen   = 14 // dst(6) + src(6) + ethertype(2)
	pppoeHeaderLen = 6  // ver/type(1) + code(1) + session(2) + length(2)
	tagHeaderLen   = 4  // type(2) + length(2)

	// padrTrailerLen is the zero-filled trailer the original tool appends
	// after a PADR and then transmits as part of the frame (§9 PADR padding
	// trick). It is not reflected in the PPPoE Length field.
	padrTrailerLen = 14
)

// MAC is a 6-octet Ethernet hardware address.
type MAC [macLen]byte

// Broadcast is the distinguished all-ones Ethernet address (§3).
var Broadcast = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// Errors returned by the codec.
var (
	ErrBufferTooSmall = errors.New("pppoe: destination buffer too small")
	ErrFrameTooShort  = errors.New("pppoe: frame shorter than ethernet+pppoe header")
	ErrBadVersion     = errors.New("pppoe: bad version/type nibble")
	ErrLengthOverflow = errors.New("pppoe: length field exceeds available buffer")
	ErrTagTruncated   = errors.New("pppoe: tag list truncated or declares an out-of-bounds length")
)

// Tag is one decoded TLV entry from a Discovery packet's tag list.
type Tag struct {
	Type  TagType
	Value []byte
}

// Frame is a parsed PPPoE frame: the Ethernet header fields plus the PPPoE
// header fields. Payload holds the raw bytes following the PPPoE header — a
// tag list for Discovery codes, or an encapsulated PPP frame for CodeSession.
type Frame struct {
	Dst       MAC
	Src       MAC
	EtherType uint16
	Version   uint8
	Type      uint8
	Code      Code
	SessionID uint16
	Payload   []byte
}

// Parse decodes buf as one Ethernet+PPPoE frame. It rejects frames whose
// version/type nibbles aren't both 1, and frames whose declared Length
// exceeds the bytes actually present.
func Parse(buf []byte) (*Frame, error) {
	if len(buf) < ethHeaderLen+pppoeHeaderLen {
		return nil, ErrFrameTooShort
	}

	var f Frame
	copy(f.Dst[:], buf[0:6])
	copy(f.Src[:], buf[6:12])
	f.EtherType = binary.BigEndian.Uint16(buf[12:14])

	// The tag list that follows may begin at an arbitrary (possibly odd)
	// offset relative to the start of the packet buffer; copy the fixed
	// header into an aligned local before interpreting it (§9).
	var hdr [pppoeHeaderLen]byte
	copy(hdr[:], buf[ethHeaderLen:ethHeaderLen+pppoeHeaderLen])

	f.Version = hdr[0] >> 4
	f.Type = hdr[0] & 0x0f
	if f.Version != 1 || f.Type != 1 {
		return nil, ErrBadVersion
	}
	f.Code = Code(hdr[1])
	f.SessionID = binary.BigEndian.Uint16(hdr[2:4])
	length := binary.BigEndian.Uint16(hdr[4:6])

	start := ethHeaderLen + pppoeHeaderLen
	end := start + int(length)
	if end > len(buf) {
		return nil, ErrLengthOverflow
	}
	f.Payload = buf[start:end]
	return &f, nil
}

// Tags walks f.Payload as a Discovery tag list. It is only meaningful when
// f.EtherType == EtherTypeDiscovery; callers are responsible for checking
// that before calling it.
func (f *Frame) Tags() ([]Tag, error) {
	var tags []Tag
	rest := f.Payload
	for len(rest) > 0 {
		if len(rest) < tagHeaderLen {
			return nil, ErrTagTruncated
		}

		var hdr [tagHeaderLen]byte
		copy(hdr[:], rest[:tagHeaderLen])
		typ := TagType(binary.BigEndian.Uint16(hdr[0:2]))
		length := binary.BigEndian.Uint16(hdr[2:4])

		if int(length) > len(rest)-tagHeaderLen {
			return nil, ErrTagTruncated
		}
		value := rest[tagHeaderLen : tagHeaderLen+int(length)]
		tags = append(tags, Tag{Type: typ, Value: value})
		rest = rest[tagHeaderLen+int(length):]
	}
	return tags, nil
}

// Tag returns the first tag of the given type, if present.
func (f *Frame) Tag(t TagType) (Tag, bool, error) {
	tags, err := f.Tags()
	if err != nil {
		return Tag{}, false, err
	}
	for _, tag := range tags {
		if tag.Type == t {
			return tag, true, nil
		}
	}
	return Tag{}, false, nil
}
