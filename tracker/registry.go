package tracker

import (
	"net"

	"github.com/google/uuid"
)

// --------------------------------------------------------------------------------------------- //

/*
registry is the process-wide set of tracker sessions, keyed by canonical URL. It is only ever
touched from the reactor goroutine, so it needs no locking of its own.

Invariant: a session exists in the registry iff its binding set is non-empty, except transiently
during teardown (see session.destroy).
*/
type registry struct {
	sessions map[string]*session
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]*session)}
}

func (r *registry) get(url string) (*session, bool) {
	s, ok := r.sessions[url]
	return s, ok
}

func (r *registry) put(s *session) {
	r.sessions[s.url] = s
}

func (r *registry) delete(url string) {
	delete(r.sessions, url)
}

/*
generationValid reports whether gen is still the generation token of the currently registered
session for url. A DNS completion callback uses this to detect that its session was destroyed (and
possibly replaced) while the lookup was in flight.
*/
func (r *registry) generationValid(url string, gen uuid.UUID) bool {
	s, ok := r.sessions[url]
	return ok && s.generation == gen
}

/*
bySourceAddr finds the session whose resolved address matches addr. Sessions still Resolving have
a nil addr and never match.
*/
func (r *registry) bySourceAddr(addr *net.UDPAddr) *session {
	for _, s := range r.sessions {
		if s.addr == nil {
			continue
		}
		if s.addr.Port == addr.Port && s.addr.IP.Equal(addr.IP) {
			return s
		}
	}
	return nil
}

/*
snapshot returns a stable slice of the currently registered sessions, for the status API and for
tests. Callers must not mutate the returned sessions outside the reactor goroutine.
*/
func (r *registry) snapshot() []*session {
	out := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
