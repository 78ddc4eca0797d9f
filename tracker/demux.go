package tracker

import "encoding/binary"

// --------------------------------------------------------------------------------------------- //

/*
handleDatagram is the receive demultiplexer (SPEC_FULL.md §4.8, §4.1). It runs on the reactor
goroutine. Every failure mode here — too short, unknown source, unknown opcode — is a silent drop,
matching the error-handling policy in SPEC_FULL.md §7.
*/
func (c *Client) handleDatagram(dg Datagram) {
	if len(dg.Payload) < 4 {
		return
	}

	s := c.reg.bySourceAddr(dg.From)
	if s == nil {
		return
	}

	action := binary.BigEndian.Uint32(dg.Payload[0:4])

	switch {
	case action == ActionConnect:
		if len(dg.Payload) < connectResponseLen {
			return
		}
		resp, err := DecodeConnectResponse(dg.Payload)
		if err != nil {
			return
		}
		s.handleConnectReply(resp)

	case action == ActionAnnounce:
		if len(dg.Payload) < announceHeaderLen {
			return
		}
		resp, err := DecodeAnnounceResponse(dg.Payload)
		if err != nil {
			return
		}
		s.handleAnnounceReply(resp)

	case isErrorAction(action):
		if len(dg.Payload) < errorHeaderLen {
			return
		}
		resp, err := DecodeErrorResponse(dg.Payload)
		if err != nil {
			return
		}
		s.handleErrorReply(resp)

	default:
		// unknown opcode, drop
	}
}
