package tracker

import (
	"encoding/binary"
	"fmt"

	"github.com/valyala/bytebufferpool"
)

// --------------------------------------------------------------------------------------------- //

// Action codes shared by every UDP tracker message, per BEP-15.
const (
	ActionConnect  uint32 = 0
	ActionAnnounce uint32 = 1
	ActionError    uint32 = 3

	// actionErrorSwapped is the byte-swapped form of ActionError that some trackers emit because
	// they forgot to htonl() the field. Treated identically to ActionError on receive.
	actionErrorSwapped uint32 = 0x03000000
)

// Event codes carried in an announce request.
const (
	EventNone      uint32 = 0
	EventCompleted uint32 = 1
	EventStarted   uint32 = 2
	EventStopped   uint32 = 3
)

const protocolMagic uint64 = 0x41727101980

const (
	connectRequestLen  = 16
	connectResponseLen = 16
	announceRequestLen = 98
	announceHeaderLen  = 20
	errorHeaderLen     = 8
	peerRecordLen      = 6
)

var bufPool bytebufferpool.Pool

// --------------------------------------------------------------------------------------------- //

/*
EncodeConnectRequest builds the 16-byte connect request for the given transaction id.
*/
func EncodeConnectRequest(txID uint32) []byte {
	buf := make([]byte, connectRequestLen)
	binary.BigEndian.PutUint64(buf[0:8], protocolMagic)
	binary.BigEndian.PutUint32(buf[8:12], ActionConnect)
	binary.BigEndian.PutUint32(buf[12:16], txID)
	return buf
}

// --------------------------------------------------------------------------------------------- //

/*
ConnectResponse is the decoded form of a connect reply.
*/
type ConnectResponse struct {
	TxID  uint32
	ConnID uint64
}

/*
DecodeConnectResponse parses a connect reply. Callers must have already checked action == 0 and
len(data) >= 16; this function re-validates both and returns an error if either fails.
*/
func DecodeConnectResponse(data []byte) (ConnectResponse, error) {
	if len(data) < connectResponseLen {
		return ConnectResponse{}, fmt.Errorf("tracker: short connect response: %d bytes", len(data))
	}
	action := binary.BigEndian.Uint32(data[0:4])
	if action != ActionConnect {
		return ConnectResponse{}, fmt.Errorf("tracker: unexpected action %d in connect response", action)
	}
	return ConnectResponse{
		TxID:   binary.BigEndian.Uint32(data[4:8]),
		ConnID: binary.BigEndian.Uint64(data[8:16]),
	}, nil
}

// --------------------------------------------------------------------------------------------- //

/*
AnnounceRequest carries every caller-supplied field the wire format needs for an announce. The
announced port is not a field: EncodeAnnounceRequest always writes announcePort (43213, per the
original source, see §9 of SPEC_FULL.md).
*/
type AnnounceRequest struct {
	ConnID     uint64
	TxID       uint32
	InfoHash   [20]byte
	PeerID     [20]byte
	Downloaded uint64
	Left       uint64
	Uploaded   uint64
	Event      uint32
}

// announcePort is hard-coded and not tied to any actual listening socket (see SPEC_FULL §9).
const announcePort uint16 = 43213

const (
	announceKey     uint32 = 0xFFFFFFFF
	announceNumWant int32  = -1
)

/*
EncodeAnnounceRequest renders req as the 98-byte wire form. The scratch buffer is drawn from a
pool since this runs on every announce cycle of every (tracker, torrent) pair; the returned slice
is a fresh copy that the caller owns.
*/
func EncodeAnnounceRequest(req AnnounceRequest) []byte {
	bb := bufPool.Get()
	defer bufPool.Put(bb)

	bb.B = append(bb.B[:0], make([]byte, announceRequestLen)...)
	buf := bb.B

	binary.BigEndian.PutUint64(buf[0:8], req.ConnID)
	binary.BigEndian.PutUint32(buf[8:12], ActionAnnounce)
	binary.BigEndian.PutUint32(buf[12:16], req.TxID)
	copy(buf[16:36], req.InfoHash[:])
	copy(buf[36:56], req.PeerID[:])
	binary.BigEndian.PutUint64(buf[56:64], req.Downloaded)
	binary.BigEndian.PutUint64(buf[64:72], req.Left)
	binary.BigEndian.PutUint64(buf[72:80], req.Uploaded)
	binary.BigEndian.PutUint32(buf[80:84], req.Event)
	binary.BigEndian.PutUint32(buf[84:88], 0) // ip, always 0
	binary.BigEndian.PutUint32(buf[88:92], announceKey)
	binary.BigEndian.PutUint32(buf[92:96], uint32(announceNumWant))
	binary.BigEndian.PutUint16(buf[96:98], announcePort)

	// The pooled buffer is returned to the pool on defer, so the caller needs its own copy.
	out := make([]byte, announceRequestLen)
	copy(out, buf)
	return out
}

// --------------------------------------------------------------------------------------------- //

/*
PeerRecord is one compact peer entry from an announce response.
*/
type PeerRecord struct {
	IP   [4]byte
	Port uint16
}

/*
AnnounceResponse is the decoded form of an announce reply, including the variable-length peer
list.
*/
type AnnounceResponse struct {
	TxID     uint32
	Interval uint32
	Leechers uint32
	Seeders  uint32
	Peers    []PeerRecord
}

/*
DecodeAnnounceResponse parses an announce reply. Trailing bytes that don't form a complete 6-byte
peer record are ignored, matching real-world tracker behavior of sometimes padding responses.
*/
func DecodeAnnounceResponse(data []byte) (AnnounceResponse, error) {
	if len(data) < announceHeaderLen {
		return AnnounceResponse{}, fmt.Errorf("tracker: short announce response: %d bytes", len(data))
	}
	action := binary.BigEndian.Uint32(data[0:4])
	if action != ActionAnnounce {
		return AnnounceResponse{}, fmt.Errorf("tracker: unexpected action %d in announce response", action)
	}

	resp := AnnounceResponse{
		TxID:     binary.BigEndian.Uint32(data[4:8]),
		Interval: binary.BigEndian.Uint32(data[8:12]),
		Leechers: binary.BigEndian.Uint32(data[12:16]),
		Seeders:  binary.BigEndian.Uint32(data[16:20]),
	}

	rest := data[announceHeaderLen:]
	for len(rest) >= peerRecordLen {
		var rec PeerRecord
		copy(rec.IP[:], rest[0:4])
		rec.Port = binary.BigEndian.Uint16(rest[4:6])
		resp.Peers = append(resp.Peers, rec)
		rest = rest[peerRecordLen:]
	}

	return resp, nil
}

// --------------------------------------------------------------------------------------------- //

/*
ErrorResponse is the decoded form of a tracker error reply.
*/
type ErrorResponse struct {
	TxID    uint32
	Message string
}

/*
DecodeErrorResponse parses an error reply. The action field is not re-checked here since the
demultiplexer already tolerates the byte-swapped action value before calling this.
*/
func DecodeErrorResponse(data []byte) (ErrorResponse, error) {
	if len(data) < errorHeaderLen {
		return ErrorResponse{}, fmt.Errorf("tracker: short error response: %d bytes", len(data))
	}
	return ErrorResponse{
		TxID:    binary.BigEndian.Uint32(data[4:8]),
		Message: string(data[errorHeaderLen:]),
	}, nil
}

// --------------------------------------------------------------------------------------------- //

/*
isErrorAction reports whether action is either the correct error action (3) or the known
byte-swapped variant some trackers emit (see SPEC_FULL.md §4.1).
*/
func isErrorAction(action uint32) bool {
	return action == ActionError || action == actionErrorSwapped
}
