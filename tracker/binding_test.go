package tracker

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func connectedSession(t *testing.T, c *Client, transport *fakeTransport, resolver *fakeResolver, url, host string) *session {
	t.Helper()
	resolver.set(host, net.IPv4(9, 9, 9, 9))
	s := newSession(c, url, host, 6969)
	c.reg.put(s)
	s.handleDNSResult(net.IPv4(9, 9, 9, 9), nil)
	s.handleConnectReply(ConnectResponse{TxID: s.connTxID, ConnID: 0x1111})
	return s
}

func TestBindingAnnouncesOnConnect(t *testing.T) {
	c, transport, resolver, _, _, _ := newTestClient()
	s := connectedSession(t, c, transport, resolver, "udp://tr.example:6969", "tr.example")

	torrent := newFakeTorrent("swarm")
	b := newBinding(c, s, torrent)
	s.bindings[b] = struct{}{}
	c.indexBinding(torrent, b)

	b.sendAnnounce(EventStarted)
	// The handshake's connect request plus the announce.
	require.Equal(t, 2, transport.sentCount())
}

func TestBindingRearmsOnAnnounceReply(t *testing.T) {
	c, _, _, timers, clock, sink := newTestClient()
	s := &session{client: c, url: "udp://tr.example:6969", state: stateConnected, connID: 1, bindings: map[*binding]struct{}{}}
	c.reg.put(s)

	torrent := newFakeTorrent("swarm")
	b := newBinding(c, s, torrent)
	s.bindings[b] = struct{}{}
	c.indexBinding(torrent, b)

	b.applyAnnounceReply(AnnounceResponse{
		Interval: 120,
		Leechers: 2,
		Seeders:  5,
		Peers:    []PeerRecord{{IP: [4]byte{1, 2, 3, 4}, Port: 6881}},
	})

	require.Equal(t, 120*time.Second, b.interval)
	require.Equal(t, uint32(2), b.leechers)
	require.Equal(t, uint32(5), b.seeders)
	require.Equal(t, 1, sink.count())
	require.True(t, timers.timers[len(timers.timers)-1].isArmed())
	_ = clock
}

func TestBindingIgnoresZeroPortPeers(t *testing.T) {
	c, _, _, _, _, sink := newTestClient()
	s := &session{client: c, url: "udp://tr.example:6969", state: stateConnected, bindings: map[*binding]struct{}{}}
	torrent := newFakeTorrent("swarm")
	b := newBinding(c, s, torrent)
	s.bindings[b] = struct{}{}

	b.applyAnnounceReply(AnnounceResponse{
		Peers: []PeerRecord{{IP: [4]byte{1, 2, 3, 4}, Port: 0}},
	})
	require.Equal(t, 0, sink.count())
}

func TestEnterStopPhaseSendsWithCapturedInfoHash(t *testing.T) {
	c, transport, _, _, _, _ := newTestClient()
	s := &session{client: c, url: "udp://tr.example:6969", state: stateConnected, connID: 7, bindings: map[*binding]struct{}{}}
	c.reg.put(s)

	torrent := newFakeTorrent("swarm-stop")
	b := newBinding(c, s, torrent)
	s.bindings[b] = struct{}{}
	c.indexBinding(torrent, b)

	b.enterStopPhase()

	require.Nil(t, b.torrent)
	require.Equal(t, phaseStop, b.phase)
	require.Equal(t, 1, transport.sentCount())

	sent := transport.lastSent().payload
	require.Equal(t, torrent.InfoHash(), [20]byte(sent[16:36]))
	require.Equal(t, EventStopped, beUint32(sent[80:84]))
}

func TestStopPhaseRetriesThenGivesUp(t *testing.T) {
	c, transport, _, _, clock, _ := newTestClient()
	s := &session{client: c, url: "udp://tr.example:6969", state: stateConnected, connID: 7, bindings: map[*binding]struct{}{}, timer: &fakeTimer{}}
	c.reg.put(s)

	torrent := newFakeTorrent("swarm-stop2")
	b := newBinding(c, s, torrent)
	s.bindings[b] = struct{}{}
	c.indexBinding(torrent, b)

	b.enterStopPhase()
	require.Equal(t, 1, transport.sentCount())

	// onTimerFire is called directly rather than via timers.fireArmed(): no reactor goroutine is
	// running in this test to drain the c.post() the real timer's onFire would go through.
	for i := 0; i < stopRetryLimit-1; i++ {
		clock.Advance(5 * time.Second)
		b.onTimerFire()
	}
	// stopRetryLimit-1 resends plus the initial send.
	require.Equal(t, stopRetryLimit, transport.sentCount())
	require.Contains(t, s.bindings, b)

	clock.Advance(5 * time.Second)
	b.onTimerFire()
	require.NotContains(t, s.bindings, b, "binding must be destroyed once the retry limit is hit")
}

func TestStopPhaseDestroysOnReply(t *testing.T) {
	c, _, _, _, _, _ := newTestClient()
	s := &session{client: c, url: "udp://tr.example:6969", state: stateConnected, bindings: map[*binding]struct{}{}, timer: &fakeTimer{}}
	c.reg.put(s)

	torrent := newFakeTorrent("swarm-stop3")
	b := newBinding(c, s, torrent)
	s.bindings[b] = struct{}{}
	c.indexBinding(torrent, b)
	b.enterStopPhase()

	b.applyAnnounceReply(AnnounceResponse{})
	require.NotContains(t, s.bindings, b)
}

func TestLiveErrorReplyReconnects(t *testing.T) {
	c, transport, resolver, _, _, _ := newTestClient()
	s := connectedSession(t, c, transport, resolver, "udp://tr.example:6969", "tr.example")

	torrent := newFakeTorrent("swarm-err")
	b := newBinding(c, s, torrent)
	s.bindings[b] = struct{}{}
	c.indexBinding(torrent, b)

	b.applyErrorReply("bad info_hash")
	require.Equal(t, stateConnecting, s.state)
	// The fresh handshake restarted at attempt 0 and has sent it, so the counter now stands at 1.
	require.Equal(t, 1, s.connAttempt)
}

func TestSessionDestroyedWhenLastBindingGone(t *testing.T) {
	c, _, _, _, _, _ := newTestClient()
	s := &session{client: c, url: "udp://tr.example:6969", state: stateConnected, bindings: map[*binding]struct{}{}, timer: &fakeTimer{}}
	c.reg.put(s)

	torrent := newFakeTorrent("swarm-last")
	b := newBinding(c, s, torrent)
	s.bindings[b] = struct{}{}

	b.destroy()
	_, ok := c.reg.get("udp://tr.example:6969")
	require.False(t, ok)
}
