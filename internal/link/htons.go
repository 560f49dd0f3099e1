package link

import (
	"encoding/binary"
	"unsafe"
)

// isLittleEndian reports whether the running machine is little endian.
// Carried over from the original proxy's htons.go: still the idiom this
// codebase uses to detect host byte order ahead of the raw-socket syscalls
// below, which take host-order protocol numbers in network order.
func isLittleEndian() bool {
	var i int32 = 0x01020304
	u := unsafe.Pointer(&i)
	pb := (*byte)(u)
	return *pb == 0x04
}

var littleEndianMachine = isLittleEndian()

// htons converts a uint16 from host to network byte order.
func htons(i uint16) uint16 {
	if littleEndianMachine {
		return binary.BigEndian.Uint16(binary.LittleEndian.AppendUint16(nil, i))
	}
	return i
}
