package pppoe

import "encoding/binary"

// writeEthernetHeader fills in the 14-octet Ethernet header at the start of
// buf and returns the offset of the first octet past it.
func writeEthernetHeader(buf []byte, dst, src MAC, etherType uint16) int {
	copy(buf[0:6], dst[:])
	copy(buf[6:12], src[:])
	binary.BigEndian.PutUint16(buf[12:14], etherType)
	return ethHeaderLen
}

// buildDiscovery writes an Ethernet+PPPoE Discovery frame carrying a single
// Service-Name tag (empty when serviceName == ""), and returns the total
// frame length. Grounded on create_padi/create_padr in the original source,
// which both do exactly this with a different Code and destination.
func buildDiscovery(buf []byte, dst, src MAC, code Code, sessionID uint16, serviceName string) (int, error) {
	tagValueLen := len(serviceName)
	total := ethHeaderLen + pppoeHeaderLen + tagHeaderLen + tagValueLen
	if total > len(buf) {
		return 0, ErrBufferTooSmall
	}

	off := writeEthernetHeader(buf, dst, src, EtherTypeDiscovery)

	p := buf[off : off+pppoeHeaderLen]
	p[0] = (1 << 4) | 1 // version=1, type=1
	p[1] = byte(code)
	binary.BigEndian.PutUint16(p[2:4], sessionID)
	binary.BigEndian.PutUint16(p[4:6], uint16(tagHeaderLen+tagValueLen))

	t := buf[off+pppoeHeaderLen:]
	binary.BigEndian.PutUint16(t[0:2], uint16(TagServiceName))
	binary.BigEndian.PutUint16(t[2:4], uint16(tagValueLen))
	copy(t[4:4+tagValueLen], serviceName)

	return total, nil
}

// BuildPADI writes a PADI frame (destination = broadcast) into buf and
// returns its length.
func BuildPADI(buf []byte, src MAC, serviceName string) (int, error) {
	return buildDiscovery(buf, Broadcast, src, CodePADI, 0, serviceName)
}

// BuildPADR writes a PADR frame (destination = acMAC) into buf and returns
// its length. When pad is true (the default in this implementation — see
// SPEC_FULL.md §9 "PADR padding trick"), padrTrailerLen zero octets are
// appended after the tag list and included in the returned length, exactly
// mirroring create_padr()'s memset-then-transmit-size+14 behavior; the
// PPPoE Length field itself only ever counts the real tag bytes.
func BuildPADR(buf []byte, src, acMAC MAC, serviceName string, pad bool) (int, error) {
	n, err := buildDiscovery(buf, acMAC, src, CodePADR, 0, serviceName)
	if err != nil {
		return 0, err
	}
	if !pad {
		return n, nil
	}
	end := n + padrTrailerLen
	if end > len(buf) {
		return 0, ErrBufferTooSmall
	}
	for i := n; i < end; i++ {
		buf[i] = 0
	}
	return end, nil
}

// BuildSession writes a Session frame carrying payload verbatim into buf and
// returns its length.
func BuildSession(buf []byte, src, acMAC MAC, sessionID uint16, payload []byte) (int, error) {
	total := ethHeaderLen + pppoeHeaderLen + len(payload)
	if total > len(buf) {
		return 0, ErrBufferTooSmall
	}

	off := writeEthernetHeader(buf, acMAC, src, EtherTypeSession)

	p := buf[off : off+pppoeHeaderLen]
	p[0] = (1 << 4) | 1
	p[1] = byte(CodeSession)
	binary.BigEndian.PutUint16(p[2:4], sessionID)
	binary.BigEndian.PutUint16(p[4:6], uint16(len(payload)))

	copy(buf[off+pppoeHeaderLen:], payload)
	return total, nil
}
