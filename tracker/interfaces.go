package tracker

import (
	"context"
	"net"
	"time"
)

// --------------------------------------------------------------------------------------------- //

/*
Clock abstracts the monotonic clock so session and binding timers can be tested without sleeping.
*/
type Clock interface {
	Now() time.Time
}

// --------------------------------------------------------------------------------------------- //

/*
Timer is an armable, idempotently-disarmable one-shot alarm. Disarming a timer that never fired,
or that already fired, must be a safe no-op.
*/
type Timer interface {
	Arm(deadline time.Time)
	Disarm()
}

// --------------------------------------------------------------------------------------------- //

/*
TimerService constructs Timer handles bound to an onFire callback. The callback is invoked on
whatever goroutine the implementation chooses; the reactor is responsible for re-serializing it
onto its own goroutine before touching any shared state.
*/
type TimerService interface {
	NewTimer(onFire func()) Timer
}

// --------------------------------------------------------------------------------------------- //

/*
Datagram is one inbound UDP packet together with the address it arrived from.
*/
type Datagram struct {
	Payload []byte
	From    *net.UDPAddr
}

// --------------------------------------------------------------------------------------------- //

/*
Transport is the fire-and-forget UDP send side, plus a channel of inbound datagrams. Send must
not block the caller for longer than ctx allows; a production implementation typically hands the
payload to a writer goroutine instead of calling WriteToUDP directly from the reactor.
*/
type Transport interface {
	Send(ctx context.Context, payload []byte, addr *net.UDPAddr) error
	Datagrams() <-chan Datagram
	Close() error
}

// --------------------------------------------------------------------------------------------- //

/*
Resolver performs hostname resolution off the reactor goroutine; Resolve may block.
*/
type Resolver interface {
	Resolve(ctx context.Context, hostname string) (net.IP, error)
}
