// Package network establishes the TCP connections sessions run over:
// outbound dial and inbound listen, with per-neighbor TCP MD5
// signature, TTL/GTSM, and source-interface binding applied through
// the dialer/listener Control callback before the connection is
// handed back to the caller.
package network

import (
	"context"
	"fmt"
	"net"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// FindBGPIdentifier picks a router ID from the host's interfaces when
// the configuration does not supply one explicitly: the first
// globally-routable IPv4 address found on any interface. The
// selection is arbitrary among candidates, matching how a minimal
// speaker without router-id configured falls back in practice.
func FindBGPIdentifier() (uint32, error) {
	ifs, err := net.Interfaces()
	if err != nil {
		return 0, err
	}
	for _, iface := range ifs {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ip, _, err := net.ParseCIDR(addr.String())
			if err != nil {
				continue
			}
			ip4 := ip.To4()
			if ip4 == nil || !ip.IsGlobalUnicast() {
				continue
			}
			return ipToUint32(ip4), nil
		}
	}
	return 0, fmt.Errorf("network: no usable BGP identifier found on any interface")
}

func ipToUint32(ip4 net.IP) uint32 {
	return uint32(ip4[0])<<24 | uint32(ip4[1])<<16 | uint32(ip4[2])<<8 | uint32(ip4[3])
}

// Uint32ToIP renders a packed BGP identifier back to a net.IP.
func Uint32ToIP(i uint32) net.IP {
	return net.IPv4(byte(i>>24), byte(i>>16), byte(i>>8), byte(i))
}

// Options configures the TCP options a neighbor's connection needs
// beyond what net.Dialer/net.ListenConfig set by default.
type Options struct {
	// MD5Password, if non-empty, installs a TCP MD5 signature (RFC 2385)
	// for this connection's remote address.
	MD5Password string
	// SourceInterface binds the socket to this interface name
	// (SO_BINDTODEVICE), e.g. for a VRF or multi-homed host.
	SourceInterface string
	// OutgoingTTL sets the IP TTL on outbound packets; 0 leaves the
	// kernel default in place.
	OutgoingTTL int
	// MinIncomingTTL, when >0, enables GTSM (RFC 5082): the kernel is
	// asked to set IP_MINTTL so the OS drops packets from peers more
	// than (255-MinIncomingTTL) hops away, rejecting a dial/accept this
	// package couldn't verify it belongs to an adjacent peer.
	MinIncomingTTL int
}

// Dial opens an outbound TCP connection to addr:port, applying opts
// via the socket's Control callback before the three-way handshake
// completes.
func Dial(ctx context.Context, addr net.IP, port int, opts Options) (net.Conn, error) {
	remote := &net.TCPAddr{IP: addr, Port: port}
	dialer := net.Dialer{
		Control: func(_, _ string, c syscall.RawConn) error {
			return applyOptions(c, remote, opts)
		},
	}
	return dialer.DialContext(ctx, "tcp", remote.String())
}

// Listen opens a listening socket on addr:port for accepting inbound
// sessions. Per-connection options that depend on the remote address
// (MD5, GTSM) must be reapplied per-accepted connection via
// ApplyAccepted, since the listening socket itself has no single peer.
func Listen(ctx context.Context, addr net.IP, port int, opts Options) (net.Listener, error) {
	local := &net.TCPAddr{IP: addr, Port: port}
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			return applyListenOptions(c, opts)
		},
	}
	return lc.Listen(ctx, "tcp", local.String())
}

// ApplyAccepted installs MD5 and TTL options for a connection accepted
// on a listening socket, now that the remote address is known.
func ApplyAccepted(conn net.Conn, remote net.IP, opts Options) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return fmt.Errorf("network: accepted connection is not TCP")
	}
	raw, err := tcpConn.SyscallConn()
	if err != nil {
		return err
	}
	remoteAddr := &net.TCPAddr{IP: remote, Port: 0}
	return applyOptions(raw, remoteAddr, opts)
}

func applyOptions(c syscall.RawConn, remote *net.TCPAddr, opts Options) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		intFD := int(fd)
		if opts.SourceInterface != "" {
			if err := unix.SetsockoptString(intFD, unix.SOL_SOCKET, unix.SO_BINDTODEVICE, opts.SourceInterface); err != nil {
				sockErr = fmt.Errorf("set SO_BINDTODEVICE(%s): %w", opts.SourceInterface, err)
				return
			}
		}
		if opts.MD5Password != "" {
			if err := setMD5(intFD, remote, opts.MD5Password); err != nil {
				sockErr = err
				return
			}
		}
		if opts.OutgoingTTL > 0 {
			if err := unix.SetsockoptInt(intFD, unix.IPPROTO_IP, unix.IP_TTL, opts.OutgoingTTL); err != nil {
				sockErr = fmt.Errorf("set IP_TTL(%d): %w", opts.OutgoingTTL, err)
				return
			}
		}
		if opts.MinIncomingTTL > 0 {
			if err := unix.SetsockoptInt(intFD, unix.IPPROTO_IP, unix.IP_MINTTL, opts.MinIncomingTTL); err != nil {
				sockErr = fmt.Errorf("set IP_MINTTL(%d): %w", opts.MinIncomingTTL, err)
				return
			}
		}
	})
	if err != nil {
		return err
	}
	return sockErr
}

func applyListenOptions(c syscall.RawConn, opts Options) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		if serr := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); serr != nil {
			sockErr = serr
			return
		}
		if opts.SourceInterface != "" {
			if serr := unix.SetsockoptString(int(fd), unix.SOL_SOCKET, unix.SO_BINDTODEVICE, opts.SourceInterface); serr != nil {
				sockErr = fmt.Errorf("set SO_BINDTODEVICE(%s): %w", opts.SourceInterface, serr)
			}
		}
	})
	if err != nil {
		return err
	}
	return sockErr
}

// tcpMD5Sig mirrors Linux's struct tcp_md5sig (linux/tcp.h): a
// sockaddr_storage big enough for an IPv4 or IPv6 peer, a key length,
// and a 80-byte key buffer (RFC 2385's maximum). family is native
// byte order like every other sa_family_t, so it is a plain uint16
// field rather than something packed with binary.BigEndian.
type tcpMD5Sig struct {
	family  uint16
	port    uint16
	addr    [124]byte // rest of a 128-byte sockaddr_storage after family+port
	flags   uint8
	prefixl uint8
	keylen  uint16
	ifindex int32
	key     [80]byte
}

const tcpMD5SIG = 14 // Linux TCP_MD5SIG sockopt number

const sizeofTCPMD5Sig = unsafe.Sizeof(tcpMD5Sig{})

func setMD5(fd int, remote *net.TCPAddr, password string) error {
	if len(password) > 80 {
		return fmt.Errorf("network: MD5 password exceeds 80 bytes")
	}
	var sig tcpMD5Sig
	if ip4 := remote.IP.To4(); ip4 != nil {
		sig.family = unix.AF_INET
		copy(sig.addr[:4], ip4)
	} else {
		sig.family = unix.AF_INET6
		copy(sig.addr[4:20], remote.IP.To16()) // after sin6_flowinfo
	}
	sig.keylen = uint16(len(password))
	copy(sig.key[:], password)

	b := (*(*[sizeofTCPMD5Sig]byte)(unsafe.Pointer(&sig)))[:]
	return unix.SetsockoptString(fd, unix.IPPROTO_TCP, tcpMD5SIG, string(b))
}
