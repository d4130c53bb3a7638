package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameSize bounds the payload length accepted from a peer.  The length
// header is read before the body is allocated, so an oversized announcement
// never turns into an oversized allocation.
const MaxFrameSize = 1 << 20 // 1 MiB

// frameHeaderLen is the size of the little-endian length prefix.
const frameHeaderLen = 4

// ErrFrameTooLarge is returned by ReadFrame when the announced payload
// length exceeds MaxFrameSize.  The connection is no longer in a usable
// state: the remainder of the stream cannot be re-synchronised.
type ErrFrameTooLarge struct {
	Length uint32
}

func (e *ErrFrameTooLarge) Error() string {
	return fmt.Sprintf("frame of %d bytes exceeds the %d byte limit", e.Length, MaxFrameSize)
}

// EncodeFrame returns the wire form of payload: a 4-byte little-endian
// length followed by the payload bytes.
func EncodeFrame(payload []byte) []byte {
	buf := make([]byte, frameHeaderLen+len(payload))
	binary.LittleEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[frameHeaderLen:], payload)
	return buf
}

// WriteFrame writes payload to w as a single framed message.  Header and
// body are issued in one Write call so concurrent writers that serialise on
// the same writer can never interleave partial frames.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return &ErrFrameTooLarge{Length: uint32(len(payload))}
	}
	_, err := w.Write(EncodeFrame(payload))
	return err
}

// ReadFrame reads one framed message from r.  It returns io.EOF when the
// peer closed the connection cleanly at a frame boundary and
// io.ErrUnexpectedEOF when the stream ends mid-frame.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [frameHeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	length := binary.LittleEndian.Uint32(header[:])
	if length > MaxFrameSize {
		return nil, &ErrFrameTooLarge{Length: length}
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}
