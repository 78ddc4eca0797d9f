package tracker

import (
	crand "crypto/rand"
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// --------------------------------------------------------------------------------------------- //

// peerIDPrefix matches the convention of client identifiers in the wild: two letters for the
// client, four digits for the version.
const peerIDPrefix = "-GT0001-"

const peerIDCharset = "0123456789abcdefghijklmnopqrstuvwxyz"

/*
GeneratePeerID produces the 20-byte local peer identifier generated once at process bootstrap
(SPEC_FULL.md §3, §9). It is never regenerated for the lifetime of a Client.
*/
func GeneratePeerID() ([20]byte, error) {
	var id [20]byte
	copy(id[:], peerIDPrefix)

	tail := make([]byte, len(id)-len(peerIDPrefix))
	if _, err := crand.Read(tail); err != nil {
		return id, fmt.Errorf("tracker: generating peer id: %w", err)
	}
	for i, b := range tail {
		tail[i] = peerIDCharset[int(b)%len(peerIDCharset)]
	}
	copy(id[len(peerIDPrefix):], tail)
	return id, nil
}

// --------------------------------------------------------------------------------------------- //

/*
systemClock implements Clock over time.Now.
*/
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// --------------------------------------------------------------------------------------------- //

// Bootstrap holds everything NewProductionClient needs that isn't a sensible zero value.
type Bootstrap struct {
	// ListenAddr is the local UDP address to bind, e.g. ":0" for an ephemeral port.
	ListenAddr string
	// Sink receives discovered peers.
	Sink PeerSink
	// TraceEnabled turns on the colorized debug trace of SPEC_FULL.md §4.9.
	TraceEnabled bool
}

/*
NewProductionClient binds the shared UDP socket, generates the local peer id, and assembles a
Client wired to stdlib-backed Transport/Resolver/TimerService/Clock implementations (C8 in
SPEC_FULL.md's component table). Call Run on the result to start the reactor.
*/
func NewProductionClient(b Bootstrap) (*Client, error) {
	peerID, err := GeneratePeerID()
	if err != nil {
		return nil, err
	}

	conn, err := bindUDPSocket(b.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("tracker: binding UDP socket: %w", err)
	}

	transport := newUDPTransport(conn)
	resolver := newStdResolver()
	timers := newStdTimerService(systemClock{})

	return NewClient(transport, resolver, timers, systemClock{}, b.Sink, peerID, b.TraceEnabled), nil
}

// --------------------------------------------------------------------------------------------- //

/*
bindUDPSocket binds the shared UDP socket and then, best effort, sets SO_REUSEADDR and a larger
receive buffer on it so a burst of tracker replies doesn't get dropped by a too-small kernel
buffer. Both options are applied after the bind, so SO_REUSEADDR has no effect on this bind.
*/
func bindUDPSocket(listenAddr string) (*net.UDPConn, error) {
	addr, err := net.ResolveUDPAddr("udp4", listenAddr)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, err
	}

	raw, err := conn.SyscallConn()
	if err != nil {
		return conn, nil // tuning is best-effort, the socket itself is still usable
	}

	_ = raw.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, 1<<20)
	})

	return conn, nil
}
