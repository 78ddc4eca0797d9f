package tracker

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
)

// --------------------------------------------------------------------------------------------- //

type sessionState int

const (
	stateResolving sessionState = iota
	stateConnecting
	stateConnected
	stateError
)

func (s sessionState) String() string {
	switch s {
	case stateResolving:
		return "resolving"
	case stateConnecting:
		return "connecting"
	case stateConnected:
		return "connected"
	case stateError:
		return "error"
	default:
		return "unknown"
	}
}

// connectBackoffBase and connectBackoffCap implement the 15·2^i second backoff described in
// SPEC_FULL.md §4.3, capped at 15·2^8 = 3840s.
const (
	connectBackoffBase = 15 * time.Second
	connectBackoffCap  = 3840 * time.Second
)

// --------------------------------------------------------------------------------------------- //

/*
session is one per unique tracker URL: it owns the connect handshake state machine and the set of
bindings announcing through it. All methods run on the client's reactor goroutine.
*/
type session struct {
	client *Client

	url  string
	host string
	port int
	addr *net.UDPAddr

	state      sessionState
	generation uuid.UUID

	connTxID    uint32
	connAttempt int
	connID      uint64
	timer       Timer
	txidGen     connectTxIDGen

	bindings map[*binding]struct{}
}

func newSession(c *Client, url, host string, port int) *session {
	s := &session{
		client:     c,
		url:        url,
		host:       host,
		port:       port,
		state:      stateResolving,
		generation: uuid.New(),
		bindings:   make(map[*binding]struct{}),
	}
	s.timer = c.newTimer(s.onConnectTimerFire)
	return s
}

// --------------------------------------------------------------------------------------------- //

/*
start kicks off DNS resolution for the session. Resolution runs on its own goroutine (stdlib and
most resolver implementations block) and posts its result back onto the reactor.
*/
func (s *session) start() {
	s.client.tracer.connect(s.url, "resolving %s", s.host)
	host := s.host
	go func() {
		ip, err := s.client.resolver.Resolve(context.Background(), host)
		s.client.post(func() { s.handleDNSResult(ip, err) })
	}()
}

func (s *session) handleDNSResult(ip net.IP, err error) {
	if !s.client.reg.generationValid(s.url, s.generation) {
		return // session was destroyed (and possibly replaced) while DNS was in flight
	}
	if err != nil {
		s.state = stateError
		s.client.tracer.errorf(s.url, "DNS resolution failed: %v", err)
		return
	}
	s.addr = &net.UDPAddr{IP: ip, Port: s.port}
	s.client.tracer.connect(s.url, "resolved to %s", s.addr)
	s.sendConnect()
}

// --------------------------------------------------------------------------------------------- //

/*
sendConnect sends a connect request, arms the retry timer with the current backoff, and advances
the attempt counter. Called both for the first handshake attempt and for every retry.
*/
func (s *session) sendConnect() {
	s.connTxID = s.txidGen.next(s.client.clock.Now().UnixNano())
	s.state = stateConnecting

	s.client.sendDatagram(EncodeConnectRequest(s.connTxID), s.addr)

	timeout := connectBackoff(s.connAttempt)
	s.timer.Arm(s.client.clock.Now().Add(timeout))
	s.client.tracer.connect(s.url, "sent connect attempt %d txid=0x%08x timeout=%s",
		s.connAttempt, s.connTxID, timeout)
	s.connAttempt++
}

/*
connectBackoff returns the retry delay for 0-based attempt i: 15·2^i seconds, capped.
*/
func connectBackoff(attempt int) time.Duration {
	d := connectBackoffBase
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= connectBackoffCap {
			return connectBackoffCap
		}
	}
	return d
}

func (s *session) onConnectTimerFire() {
	if s.state != stateConnecting {
		return
	}
	s.sendConnect()
}

// --------------------------------------------------------------------------------------------- //

/*
reconnect restarts the connect handshake from attempt 0, used after a tracker error reply
(SPEC_FULL.md §4.6). Bindings are left untouched; their next announces happen once the session
reaches Connected again.
*/
func (s *session) reconnect() {
	s.connAttempt = 0
	s.sendConnect()
}

// --------------------------------------------------------------------------------------------- //

/*
handleConnectReply validates and applies a connect response. Mismatched transaction ids are
silently dropped: they may belong to a previous attempt whose retry timer already fired.
*/
func (s *session) handleConnectReply(resp ConnectResponse) {
	if resp.TxID != s.connTxID {
		return
	}

	s.connAttempt = 0
	s.connID = resp.ConnID
	s.timer.Disarm()
	s.state = stateConnected
	s.client.tracer.connect(s.url, "connected, connID=%#x", s.connID)

	for b := range s.bindings {
		if b.torrent != nil {
			b.sendAnnounce(EventStarted)
		}
	}
}

// --------------------------------------------------------------------------------------------- //

func (s *session) findBindingByTxID(txID uint32) *binding {
	for b := range s.bindings {
		if b.txID == txID {
			return b
		}
	}
	return nil
}

/*
handleAnnounceReply locates the binding the reply belongs to and applies it. No match is logged
and dropped — it may be a reply for an attempt whose binding has since moved on.
*/
func (s *session) handleAnnounceReply(resp AnnounceResponse) {
	b := s.findBindingByTxID(resp.TxID)
	if b == nil {
		s.client.tracer.announce(s.url, "announce reply for unknown txid=0x%08x, dropping", resp.TxID)
		return
	}
	b.applyAnnounceReply(resp)
}

/*
handleErrorReply locates the binding the error belongs to; if found and still live, it reconnects
the session, otherwise it acknowledges a pending stop-announce by destroying the binding.
*/
func (s *session) handleErrorReply(resp ErrorResponse) {
	b := s.findBindingByTxID(resp.TxID)
	if b == nil {
		return // error does not correspond to our request
	}
	b.applyErrorReply(resp.Message)
}

// --------------------------------------------------------------------------------------------- //

/*
destroy tears the session down. It must only be called once its binding set is empty. DNS in
flight for this session is not cancelled; handleDNSResult's generation check makes that safe.
*/
func (s *session) destroy() {
	s.timer.Disarm()
	if cur, ok := s.client.reg.get(s.url); ok && cur == s {
		s.client.reg.delete(s.url)
	}
	s.client.tracer.connect(s.url, "destroyed")
}

func (s *session) String() string {
	return fmt.Sprintf("%s[%s]", s.url, s.state)
}
