package tracker

import (
	"context"
	"net"
	"sync"
	"time"
)

// --------------------------------------------------------------------------------------------- //

// fakeClock is a manually-advanced Clock so tests can assert exact backoff/interval deadlines
// without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// --------------------------------------------------------------------------------------------- //

// fakeTimerService builds fakeTimers that only fire when the test explicitly tells them to, via
// fireArmed; it never uses a real clock.
type fakeTimerService struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func newFakeTimerService() *fakeTimerService {
	return &fakeTimerService{}
}

func (s *fakeTimerService) NewTimer(onFire func()) Timer {
	t := &fakeTimer{onFire: onFire}
	s.mu.Lock()
	s.timers = append(s.timers, t)
	s.mu.Unlock()
	return t
}

// fireArmed invokes onFire for every currently-armed timer, synchronously, in the order they were
// created. It snapshots the armed set first since firing one can re-arm another.
func (s *fakeTimerService) fireArmed() {
	s.mu.Lock()
	armed := make([]*fakeTimer, 0, len(s.timers))
	for _, t := range s.timers {
		if t.isArmed() {
			armed = append(armed, t)
		}
	}
	s.mu.Unlock()

	for _, t := range armed {
		t.mu.Lock()
		t.armed = false
		fn := t.onFire
		t.mu.Unlock()
		fn()
	}
}

type fakeTimer struct {
	mu       sync.Mutex
	armed    bool
	deadline time.Time
	onFire   func()
}

func (t *fakeTimer) Arm(deadline time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.armed = true
	t.deadline = deadline
}

func (t *fakeTimer) Disarm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.armed = false
}

func (t *fakeTimer) isArmed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

// --------------------------------------------------------------------------------------------- //

// fakeTransport is an in-memory Transport: Send appends to sent, and tests push replies into in
// directly via deliver.
type fakeTransport struct {
	mu   sync.Mutex
	sent []sentDatagram

	in chan Datagram
}

type sentDatagram struct {
	payload []byte
	addr    *net.UDPAddr
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{in: make(chan Datagram, 64)}
}

func (f *fakeTransport) Send(ctx context.Context, payload []byte, addr *net.UDPAddr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	f.sent = append(f.sent, sentDatagram{payload: cp, addr: addr})
	return nil
}

func (f *fakeTransport) Datagrams() <-chan Datagram { return f.in }

func (f *fakeTransport) Close() error { close(f.in); return nil }

func (f *fakeTransport) deliver(from *net.UDPAddr, payload []byte) {
	f.in <- Datagram{Payload: payload, From: from}
}

func (f *fakeTransport) lastSent() sentDatagram {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// --------------------------------------------------------------------------------------------- //

// fakeResolver fails hostnames registered via fail, resolves those registered via set, and
// resolves any other hostname to 127.0.0.1.
type fakeResolver struct {
	mu   sync.Mutex
	ips  map[string]net.IP
	errs map[string]error
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{ips: make(map[string]net.IP), errs: make(map[string]error)}
}

func (r *fakeResolver) set(host string, ip net.IP) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ips[host] = ip
}

func (r *fakeResolver) fail(host string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[host] = err
}

func (r *fakeResolver) Resolve(ctx context.Context, hostname string) (net.IP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.errs[hostname]; ok {
		return nil, err
	}
	if ip, ok := r.ips[hostname]; ok {
		return ip, nil
	}
	return net.IPv4(127, 0, 0, 1), nil
}

// --------------------------------------------------------------------------------------------- //

// fakePeerSink records every AddPeer call it receives.
type fakePeerSink struct {
	mu    sync.Mutex
	peers []struct {
		t    Torrent
		ip   [4]byte
		port uint16
	}
}

func newFakePeerSink() *fakePeerSink { return &fakePeerSink{} }

func (s *fakePeerSink) AddPeer(t Torrent, ip [4]byte, port uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers = append(s.peers, struct {
		t    Torrent
		ip   [4]byte
		port uint16
	}{t, ip, port})
}

func (s *fakePeerSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// --------------------------------------------------------------------------------------------- //

// fakeTorrent is a fixed-value Torrent for tests that don't care about mutating counters.
type fakeTorrent struct {
	hash            [20]byte
	title           string
	down, left, up  uint64
}

func (t *fakeTorrent) InfoHash() [20]byte { return t.hash }
func (t *fakeTorrent) Title() string      { return t.title }
func (t *fakeTorrent) Downloaded() uint64 { return t.down }
func (t *fakeTorrent) Remaining() uint64  { return t.left }
func (t *fakeTorrent) Uploaded() uint64   { return t.up }

func newFakeTorrent(title string) *fakeTorrent {
	var hash [20]byte
	copy(hash[:], title)
	return &fakeTorrent{hash: hash, title: title, left: 1000}
}

// --------------------------------------------------------------------------------------------- //

// newTestClient builds a Client wired entirely to fakes, without starting its reactor goroutine;
// callers invoke its private *Locked methods directly, or start it with runningClient.
func newTestClient() (*Client, *fakeTransport, *fakeResolver, *fakeTimerService, *fakeClock, *fakePeerSink) {
	transport := newFakeTransport()
	resolver := newFakeResolver()
	timers := newFakeTimerService()
	clock := newFakeClock()
	sink := newFakePeerSink()

	var peerID [20]byte
	copy(peerID[:], "-GT0001-testpeeridxx")

	c := NewClient(transport, resolver, timers, clock, sink, peerID, false)
	return c, transport, resolver, timers, clock, sink
}
