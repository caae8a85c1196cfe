package transport

import (
	"encoding/binary"
	"fmt"
)

// RequestType identifies the operation a client asks for.
type RequestType int32

const (
	ReqLogin RequestType = iota
	ReqRide
	ReqCancel
	ReqConsult
	ReqTerminate
)

func (t RequestType) String() string {
	switch t {
	case ReqLogin:
		return "LOGIN"
	case ReqRide:
		return "RIDE"
	case ReqCancel:
		return "CANCEL"
	case ReqConsult:
		return "CONSULT"
	case ReqTerminate:
		return "TERMINATE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int32(t))
	}
}

// Fixed record sizes on the pipes. Every write is exactly one record, which
// keeps reads atomic under PIPE_BUF.
const (
	nameLen = 50
	dataLen = 256
	msgLen  = 256

	// RequestSize is pid(4) + name(50) + type(4) + data(256).
	RequestSize = 4 + nameLen + 4 + dataLen
	// ReplySize is success(4) + message(256).
	ReplySize = 4 + msgLen
)

// Request is one client command record.
type Request struct {
	PID  int32
	Name string
	Type RequestType
	Data string
}

// Reply is one controller response record.
type Reply struct {
	Success bool
	Message string
}

func putString(dst []byte, s string) {
	// Truncate to capacity minus the NUL terminator; the rest stays zeroed.
	n := copy(dst[:len(dst)-1], s)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

func getString(src []byte) string {
	for i, b := range src {
		if b == 0 {
			return string(src[:i])
		}
	}
	return string(src)
}

// Encode serializes the request into a RequestSize record.
func (r Request) Encode() []byte {
	buf := make([]byte, RequestSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(r.PID))
	putString(buf[4:4+nameLen], r.Name)
	binary.LittleEndian.PutUint32(buf[4+nameLen:8+nameLen], uint32(r.Type))
	putString(buf[8+nameLen:], r.Data)
	return buf
}

// DecodeRequest parses one request record.
func DecodeRequest(buf []byte) (Request, error) {
	if len(buf) < RequestSize {
		return Request{}, fmt.Errorf("short request record: %d bytes", len(buf))
	}
	return Request{
		PID:  int32(binary.LittleEndian.Uint32(buf[0:4])),
		Name: getString(buf[4 : 4+nameLen]),
		Type: RequestType(binary.LittleEndian.Uint32(buf[4+nameLen : 8+nameLen])),
		Data: getString(buf[8+nameLen : RequestSize]),
	}, nil
}

// Encode serializes the reply into a ReplySize record.
func (r Reply) Encode() []byte {
	buf := make([]byte, ReplySize)
	if r.Success {
		binary.LittleEndian.PutUint32(buf[0:4], 1)
	}
	putString(buf[4:], r.Message)
	return buf
}

// DecodeReply parses one reply record.
func DecodeReply(buf []byte) (Reply, error) {
	if len(buf) < ReplySize {
		return Reply{}, fmt.Errorf("short reply record: %d bytes", len(buf))
	}
	return Reply{
		Success: binary.LittleEndian.Uint32(buf[0:4]) != 0,
		Message: getString(buf[4:ReplySize]),
	}, nil
}
