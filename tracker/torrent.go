package tracker

// --------------------------------------------------------------------------------------------- //

/*
Torrent is the read-only contract this package needs from a swarm. The caller owns the concrete
type (parsing .torrent files, tracking downloaded/remaining/uploaded bytes, etc. are all out of
scope here); this package only ever reads from it.

Parameters:
  - None: Torrent is an interface, not a function.

Returns:
  - None: see individual methods.
*/
type Torrent interface {
	// InfoHash returns the 20-byte SHA-1 hash identifying the swarm.
	InfoHash() [20]byte

	// Title is a display-only name, used in trace output.
	Title() string

	// Downloaded, Remaining and Uploaded report the transfer counters sent with every announce.
	Downloaded() uint64
	Remaining() uint64
	Uploaded() uint64
}

// --------------------------------------------------------------------------------------------- //

/*
PeerSink receives peer addresses discovered in announce replies. Implementations must be
idempotent: the same peer may be reported more than once for the same torrent and duplicates
should be silently ignored by the sink, not by this package.
*/
type PeerSink interface {
	AddPeer(t Torrent, ip [4]byte, port uint16)
}

// --------------------------------------------------------------------------------------------- //

/*
PeerSinkFunc adapts a plain function to PeerSink.
*/
type PeerSinkFunc func(t Torrent, ip [4]byte, port uint16)

func (f PeerSinkFunc) AddPeer(t Torrent, ip [4]byte, port uint16) { f(t, ip, port) }
