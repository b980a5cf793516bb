package base

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net"

	"github.com/ValentinKolb/vold/rpc/common"
)

const frameHeaderSize = 4

// checkFrameSize rejects payloads the signed length prefix can not announce
// and payloads above maxSize (0 disables the limit)
func checkFrameSize(size int64, maxSize int) error {
	if size > math.MaxInt32 || (maxSize > 0 && size > int64(maxSize)) {
		return fmt.Errorf("%w: %d bytes", common.ErrFrameTooLarge, size)
	}
	return nil
}

// writeFrame writes a frame to the connection with the format:
// - 4 bytes: data length (int32, big endian)
// - N bytes: data payload
func writeFrame(conn net.Conn, data []byte, maxSize int) error {
	if err := checkFrameSize(int64(len(data)), maxSize); err != nil {
		return err
	}

	header := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint32(header, uint32(len(data)))

	b := net.Buffers{header, data}
	_, err := b.WriteTo(conn)
	return err
}

// readFrame reads a frame from the connection. io.ReadFull keeps reading until
// the announced length is collected, regardless of how the transport chunks it.
// The announced length is checked against maxSize before anything is allocated.
func readFrame(conn net.Conn, maxSize int) ([]byte, error) {
	header := make([]byte, frameHeaderSize)
	if _, err := io.ReadFull(conn, header); err != nil {
		return nil, closedOr(err)
	}

	size := int32(binary.BigEndian.Uint32(header))
	if size < 0 {
		return nil, fmt.Errorf("invalid frame length %d", size)
	}
	if err := checkFrameSize(int64(size), maxSize); err != nil {
		return nil, err
	}
	if size == 0 {
		return []byte{}, nil
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(conn, data); err != nil {
		return nil, closedOr(err)
	}
	return data, nil
}

// closedOr maps the end of stream errors to common.ErrPeerClosed
func closedOr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return common.ErrPeerClosed
	}
	return err
}
