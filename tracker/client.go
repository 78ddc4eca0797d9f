package tracker

import (
	"context"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"
)

// --------------------------------------------------------------------------------------------- //

/*
Client is the lifecycle orchestrator (SPEC_FULL.md §4.7): the public entry point for registering
torrents against UDP trackers, announcing them, and tearing them down. All mutation of its
internal state happens on a single reactor goroutine started by Run; the public methods are safe
to call concurrently from any goroutine and block until the reactor has applied the change.
*/
type Client struct {
	transport Transport
	resolver  Resolver
	timers    TimerService
	clock     Clock
	sink      PeerSink
	tracer    *tracer

	peerID [20]byte
	txids  announceTxIDs

	reg *registry
	// torrentBindings is the secondary, non-owning index from torrent to its live bindings,
	// used by RemoveTorrent and AnnounceAll. The session's bindings map is the owning one.
	torrentBindings map[Torrent]map[*binding]struct{}

	cmds chan func()
	done chan struct{}
	once sync.Once
}

// --------------------------------------------------------------------------------------------- //

/*
NewClient wires together a Client from its external collaborators (SPEC_FULL.md §6). Production
callers should use NewProductionClient instead, which builds the stdlib-backed implementations of these
interfaces.
*/
func NewClient(transport Transport, resolver Resolver, timers TimerService, clock Clock, sink PeerSink, peerID [20]byte, traceEnabled bool) *Client {
	return &Client{
		transport:       transport,
		resolver:        resolver,
		timers:          timers,
		clock:           clock,
		sink:            sink,
		tracer:          newTracer(traceEnabled),
		peerID:          peerID,
		reg:             newRegistry(),
		torrentBindings: make(map[Torrent]map[*binding]struct{}),
		cmds:            make(chan func()),
		done:            make(chan struct{}),
	}
}

// --------------------------------------------------------------------------------------------- //

/*
Run drives the reactor until ctx is cancelled or a supervised goroutine fails. It returns once
every goroutine it started has exited.
*/
func (c *Client) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		c.once.Do(func() { close(c.done) })
		return nil
	})

	g.Go(func() error {
		return c.reactorLoop(gctx)
	})

	g.Go(func() error {
		return c.pumpDatagrams(gctx)
	})

	return g.Wait()
}

func (c *Client) reactorLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-c.cmds:
			fn()
		}
	}
}

func (c *Client) pumpDatagrams(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case dg, ok := <-c.transport.Datagrams():
			if !ok {
				return nil
			}
			c.post(func() { c.handleDatagram(dg) })
		}
	}
}

// --------------------------------------------------------------------------------------------- //

/*
post schedules fn to run on the reactor goroutine. It never blocks past the client shutting down.
*/
func (c *Client) post(fn func()) {
	select {
	case c.cmds <- fn:
	case <-c.done:
	}
}

/*
sync schedules fn on the reactor goroutine and blocks until it has run.
*/
func (c *Client) sync(fn func()) {
	doneCh := make(chan struct{})
	c.post(func() {
		fn()
		close(doneCh)
	})
	select {
	case <-doneCh:
	case <-c.done:
	}
}

/*
newTimer wraps the configured TimerService so that onFire always runs on the reactor goroutine,
regardless of which goroutine the underlying implementation invokes it from.
*/
func (c *Client) newTimer(onFire func()) Timer {
	return c.timers.NewTimer(func() { c.post(onFire) })
}

/*
sendDatagram hands payload to the transport. The transport is expected to return quickly
(production implementations queue to a writer goroutine); a failure here is traced, not returned,
matching the fire-and-forget nature of UDP sends in SPEC_FULL.md §6.
*/
func (c *Client) sendDatagram(payload []byte, addr *net.UDPAddr) {
	if err := c.transport.Send(context.Background(), payload, addr); err != nil {
		c.tracer.errorf(addr.String(), "send failed: %v", err)
	}
}

// --------------------------------------------------------------------------------------------- //

/*
AddTorrent registers torrent against the tracker at trackerURL, creating the session if one does
not already exist for that URL. It returns an error wrapping ErrUnsupportedScheme when trackerURL
is not a well-formed udp:// URL (another scheme, no host, or a non-numeric port), and ErrClosed
once the reactor has stopped; hosts that do not resolve surface later as a DNS failure on the
session.
*/
func (c *Client) AddTorrent(trackerURL string, t Torrent) error {
	retErr := ErrClosed
	c.sync(func() { retErr = c.addTorrentLocked(trackerURL, t) })
	return retErr
}

func (c *Client) addTorrentLocked(trackerURL string, t Torrent) error {
	host, port, err := parseTrackerURL(trackerURL)
	if err != nil {
		return wrapf(ErrUnsupportedScheme, "%s", trackerURL)
	}

	s, ok := c.reg.get(trackerURL)
	if !ok {
		s = newSession(c, trackerURL, host, port)
		c.reg.put(s)
		s.start()
	}

	b := newBinding(c, s, t)
	s.bindings[b] = struct{}{}
	c.indexBinding(t, b)

	if s.state == stateConnected {
		b.sendAnnounce(EventStarted)
	}
	return nil
}

// --------------------------------------------------------------------------------------------- //

/*
RemoveTorrent deregisters torrent from every tracker it was added to. Bindings on a Connected
session send a stop announce and enter the stop-retry lifecycle (SPEC_FULL.md §4.4); bindings on
any other session are destroyed immediately. RemoveTorrent blocks until the reactor has applied
every resulting state change, so it is safe to drop all other references to torrent right after
it returns.
*/
func (c *Client) RemoveTorrent(t Torrent) {
	c.sync(func() { c.removeTorrentLocked(t) })
}

func (c *Client) removeTorrentLocked(t Torrent) {
	bindings := c.torrentBindings[t]
	// Snapshot first: binding destruction mutates c.torrentBindings[t] (and may delete the map
	// entry outright), which would otherwise invalidate iteration mid-loop.
	snapshot := make([]*binding, 0, len(bindings))
	for b := range bindings {
		snapshot = append(snapshot, b)
	}

	for _, b := range snapshot {
		if b.tracker.state == stateConnected {
			b.enterStopPhase()
			c.unindexBinding(t, b)
		} else {
			b.destroy()
		}
	}
}

// --------------------------------------------------------------------------------------------- //

/*
AnnounceAll sends a refresh announce (event=started, preserving the original source's behavior —
see SPEC_FULL.md §9) for every binding of torrent whose tracker is Connected. Bindings on trackers
that are not yet connected are skipped; their next announce happens once the session connects.
*/
func (c *Client) AnnounceAll(t Torrent) {
	c.sync(func() { c.announceAllLocked(t) })
}

func (c *Client) announceAllLocked(t Torrent) {
	for b := range c.torrentBindings[t] {
		if b.tracker.state == stateConnected {
			b.sendAnnounce(EventStarted)
		}
	}
}

// --------------------------------------------------------------------------------------------- //

func (c *Client) indexBinding(t Torrent, b *binding) {
	set, ok := c.torrentBindings[t]
	if !ok {
		set = make(map[*binding]struct{})
		c.torrentBindings[t] = set
	}
	set[b] = struct{}{}
}

func (c *Client) unindexBinding(t Torrent, b *binding) {
	set, ok := c.torrentBindings[t]
	if !ok {
		return
	}
	delete(set, b)
	if len(set) == 0 {
		delete(c.torrentBindings, t)
	}
}

// --------------------------------------------------------------------------------------------- //

/*
Snapshot returns a point-in-time view of the registry for the status API (SPEC_FULL.md §4.11). It
never mutates tracker state.
*/
func (c *Client) Snapshot() []TrackerSnapshot {
	var out []TrackerSnapshot
	c.sync(func() {
		for _, s := range c.reg.snapshot() {
			ts := TrackerSnapshot{
				URL:   s.url,
				State: s.state.String(),
				ConnID: s.connID,
			}
			for b := range s.bindings {
				bs := BindingSnapshot{
					Interval: b.interval,
					Leechers: b.leechers,
					Seeders:  b.seeders,
					Stopping: b.phase == phaseStop,
				}
				if b.torrent != nil {
					bs.Title = b.torrent.Title()
				}
				ts.Bindings = append(ts.Bindings, bs)
			}
			out = append(out, ts)
		}
	})
	return out
}
