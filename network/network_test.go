package network

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUint32ToIPRoundTrips(t *testing.T) {
	ip := net.ParseIP("203.0.113.7").To4()
	packed := ipToUint32(ip)
	require.Equal(t, ip, Uint32ToIP(packed).To4())
}

func TestSetMD5RejectsOverlongPassword(t *testing.T) {
	long := make([]byte, 81)
	for i := range long {
		long[i] = 'a'
	}
	err := setMD5(-1, &net.TCPAddr{IP: net.ParseIP("203.0.113.1")}, string(long))
	require.Error(t, err)
}

func TestTCPMD5SigHasRoomForFullKeyAndAddress(t *testing.T) {
	// Regardless of compiler padding, the struct must have at least
	// enough room for the fixed fields plus an 80-byte key and a
	// 16-byte (IPv6) address.
	require.GreaterOrEqual(t, sizeofTCPMD5Sig, uintptr(2+2+16+1+1+2+2+4+80))
}
