package tracker

import (
	"context"
	"fmt"
	"net"
)

// outboundQueueSize bounds how many pending sends the writer goroutine will buffer before the
// reactor starts dropping them (see SPEC_FULL.md §5: "a full channel indicates a caller bug").
const outboundQueueSize = 4096

const datagramReadBufferSize = 2048

// --------------------------------------------------------------------------------------------- //

type outboundDatagram struct {
	payload []byte
	addr    *net.UDPAddr
}

/*
udpTransport implements Transport over a single shared *net.UDPConn. Sends are queued to a writer
goroutine so Send never blocks the reactor; receives are pumped into a channel by a reader
goroutine. The reader goroutine exits when the underlying connection is closed; the writer
goroutine is not stopped by Close and keeps waiting on the outbound queue.
*/
type udpTransport struct {
	conn *net.UDPConn
	out  chan outboundDatagram
	in   chan Datagram
}

func newUDPTransport(conn *net.UDPConn) *udpTransport {
	t := &udpTransport{
		conn: conn,
		out:  make(chan outboundDatagram, outboundQueueSize),
		in:   make(chan Datagram, outboundQueueSize),
	}
	go t.writeLoop()
	go t.readLoop()
	return t
}

func (t *udpTransport) Send(ctx context.Context, payload []byte, addr *net.UDPAddr) error {
	select {
	case t.out <- outboundDatagram{payload: payload, addr: addr}:
		return nil
	default:
		return fmt.Errorf("tracker: outbound queue full, dropping %d-byte datagram to %s", len(payload), addr)
	}
}

func (t *udpTransport) Datagrams() <-chan Datagram {
	return t.in
}

func (t *udpTransport) Close() error {
	return t.conn.Close()
}

func (t *udpTransport) writeLoop() {
	for dg := range t.out {
		_, _ = t.conn.WriteToUDP(dg.payload, dg.addr)
	}
}

func (t *udpTransport) readLoop() {
	buf := make([]byte, datagramReadBufferSize)
	for {
		n, from, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			close(t.in)
			return
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])
		t.in <- Datagram{Payload: payload, From: from}
	}
}
