package tracker

import "time"

// --------------------------------------------------------------------------------------------- //

/*
TrackerSnapshot is a read-only view of one session, used by the status API and by tests that want
to assert on registry shape without reaching into package-private fields.
*/
type TrackerSnapshot struct {
	URL      string
	State    string
	ConnID   uint64
	Bindings []BindingSnapshot
}

/*
BindingSnapshot is a read-only view of one (tracker, torrent) binding.
*/
type BindingSnapshot struct {
	Title    string
	Interval time.Duration
	Leechers uint32
	Seeders  uint32
	Stopping bool
}
