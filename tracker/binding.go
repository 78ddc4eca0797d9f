package tracker

import "time"

// --------------------------------------------------------------------------------------------- //

type bindingPhase int

const (
	phaseLive bindingPhase = iota
	phaseStop
)

// stopRetryInterval and stopRetryLimit implement the stop-announce retry policy of
// SPEC_FULL.md §4.4: retry every 5s, give up (and destroy the binding regardless) after 5
// attempts.
const (
	stopRetryInterval = 5 * time.Second
	stopRetryLimit    = 5
)

// defaultAnnounceInterval is the interval a freshly created binding uses until its first
// announce reply updates it.
const defaultAnnounceInterval = 60 * time.Second

// --------------------------------------------------------------------------------------------- //

/*
binding is one (tracker, torrent) pair. The session that owns it via its bindings set is the
binding's unique owner; torrent holds a clearable reference, nil once RemoveTorrent has released
it (see SPEC_FULL.md §9, "Torrent references during shutdown").
*/
type binding struct {
	client  *Client
	tracker *session
	torrent Torrent

	// infoHash is captured once at creation: a torrent's identity never changes, so it remains
	// valid for stop-phase resends after torrent is cleared.
	infoHash [20]byte

	interval time.Duration
	txID     uint32
	attempt  int
	leechers uint32
	seeders  uint32
	timer    Timer
	phase    bindingPhase

	// stopCounters is a snapshot of the transfer counters taken when entering stop phase, used
	// for the resends since the live torrent reference is no longer available to re-read them.
	stopCounters struct {
		downloaded, left, uploaded uint64
	}
}

func newBinding(c *Client, tr *session, t Torrent) *binding {
	b := &binding{
		client:   c,
		tracker:  tr,
		torrent:  t,
		infoHash: t.InfoHash(),
		interval: defaultAnnounceInterval,
		phase:    phaseLive,
	}
	b.timer = c.newTimer(b.onTimerFire)
	return b
}

// --------------------------------------------------------------------------------------------- //

/*
sendAnnounce transmits an announce request for event and records its transaction id so the reply
can be correlated back to this binding. It does not arm or disarm any timer; callers decide that
based on why they are announcing (see SPEC_FULL.md §4.4).
*/
func (b *binding) sendAnnounce(event uint32) {
	b.txID = b.client.txids.next()

	req := AnnounceRequest{
		ConnID:   b.tracker.connID,
		TxID:     b.txID,
		PeerID:   b.client.peerID,
		Event:    event,
		InfoHash: b.infoHash,
	}
	if b.torrent != nil {
		req.Downloaded = b.torrent.Downloaded()
		req.Left = b.torrent.Remaining()
		req.Uploaded = b.torrent.Uploaded()
	} else {
		req.Downloaded = b.stopCounters.downloaded
		req.Left = b.stopCounters.left
		req.Uploaded = b.stopCounters.uploaded
	}

	b.client.sendDatagram(EncodeAnnounceRequest(req), b.tracker.addr)
	b.client.tracer.announce(b.subject(), "sent event=%d txid=0x%08x", event, b.txID)
}

func (b *binding) subject() string {
	if b.torrent != nil {
		return b.torrent.Title()
	}
	return "(stopping)"
}

// --------------------------------------------------------------------------------------------- //

/*
onTimerFire is the single entry point for both the live-phase periodic cycle and the stop-phase
retry cycle; which behavior applies is determined by phase.
*/
func (b *binding) onTimerFire() {
	switch b.phase {
	case phaseLive:
		b.sendAnnounce(EventStarted)
		b.timer.Arm(b.client.clock.Now().Add(b.interval))

	case phaseStop:
		b.attempt++
		if b.attempt == stopRetryLimit {
			b.destroy()
			return
		}
		b.sendAnnounce(EventStopped)
		b.timer.Arm(b.client.clock.Now().Add(stopRetryInterval))
	}
}

// --------------------------------------------------------------------------------------------- //

/*
enterStopPhase sends the initial stop announce and arms the first stop-retry timer. Called by the
lifecycle orchestrator when a torrent is removed while its tracker is Connected.
*/
func (b *binding) enterStopPhase() {
	b.stopCounters.downloaded = b.torrent.Downloaded()
	b.stopCounters.left = b.torrent.Remaining()
	b.stopCounters.uploaded = b.torrent.Uploaded()

	b.phase = phaseStop
	b.torrent = nil
	b.sendAnnounce(EventStopped)
	b.timer.Arm(b.client.clock.Now().Add(stopRetryInterval))
}

// --------------------------------------------------------------------------------------------- //

/*
applyAnnounceReply updates interval/leechers/seeders from resp and either destroys the binding
(stop phase — the stop has been acknowledged) or forwards newly discovered peers and rearms the
periodic timer (live phase).
*/
func (b *binding) applyAnnounceReply(resp AnnounceResponse) {
	b.interval = time.Duration(resp.Interval) * time.Second
	b.leechers = resp.Leechers
	b.seeders = resp.Seeders

	if b.phase == phaseStop {
		b.destroy()
		return
	}

	for _, p := range resp.Peers {
		if p.Port == 0 {
			continue
		}
		b.client.sink.AddPeer(b.torrent, p.IP, p.Port)
	}

	b.client.tracer.announce(b.subject(), "reply leechers=%d seeders=%d interval=%s peers=%d",
		b.leechers, b.seeders, b.interval, len(resp.Peers))

	b.timer.Arm(b.client.clock.Now().Add(b.interval))
}

// --------------------------------------------------------------------------------------------- //

/*
applyErrorReply handles a tracker error response correlated to this binding. In stop phase the
error is treated as an acknowledgment; otherwise the owning session reconnects.
*/
func (b *binding) applyErrorReply(message string) {
	if b.phase == phaseStop {
		b.destroy()
		return
	}
	b.client.tracer.errorf(b.subject(), "tracker error %q, reconnecting", message)
	b.tracker.reconnect()
}

// --------------------------------------------------------------------------------------------- //

/*
destroy unlinks the binding from its session (and the client's torrent index, if still linked)
and disarms its timer. If the session's binding set becomes empty, the session is destroyed too.
*/
func (b *binding) destroy() {
	b.timer.Disarm()
	delete(b.tracker.bindings, b)
	if b.torrent != nil {
		b.client.unindexBinding(b.torrent, b)
	}
	if len(b.tracker.bindings) == 0 {
		b.tracker.destroy()
	}
}
