package tracker

import (
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegistryPutGetDelete(t *testing.T) {
	r := newRegistry()
	s := &session{url: "udp://a:1", generation: uuid.New()}
	r.put(s)

	got, ok := r.get("udp://a:1")
	require.True(t, ok)
	require.Same(t, s, got)

	r.delete("udp://a:1")
	_, ok = r.get("udp://a:1")
	require.False(t, ok)
}

func TestRegistryGenerationValid(t *testing.T) {
	r := newRegistry()
	s := &session{url: "udp://a:1", generation: uuid.New()}
	r.put(s)

	require.True(t, r.generationValid("udp://a:1", s.generation))
	require.False(t, r.generationValid("udp://a:1", uuid.New()))
	require.False(t, r.generationValid("udp://missing:1", s.generation))
}

func TestRegistryBySourceAddr(t *testing.T) {
	r := newRegistry()
	resolving := &session{url: "udp://resolving:1"}
	connected := &session{url: "udp://connected:1", addr: &net.UDPAddr{IP: net.IPv4(1, 2, 3, 4), Port: 6969}}
	r.put(resolving)
	r.put(connected)

	found := r.bySourceAddr(&net.UDPAddr{IP: net.IPv4(1, 2, 3, 4), Port: 6969})
	require.Same(t, connected, found)

	require.Nil(t, r.bySourceAddr(&net.UDPAddr{IP: net.IPv4(5, 6, 7, 8), Port: 1}))
}

func TestRegistrySnapshot(t *testing.T) {
	r := newRegistry()
	r.put(&session{url: "udp://a:1"})
	r.put(&session{url: "udp://b:1"})
	require.Len(t, r.snapshot(), 2)
}
