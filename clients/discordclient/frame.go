package discordclient

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// opcode identifies an IPC frame.
type opcode uint32

const (
	opHandshake opcode = 0
	opFrame     opcode = 1
	opClose     opcode = 2
	opPing      opcode = 3
	opPong      opcode = 4
)

func (o opcode) String() string {
	switch o {
	case opHandshake:
		return "handshake"
	case opFrame:
		return "frame"
	case opClose:
		return "close"
	case opPing:
		return "ping"
	case opPong:
		return "pong"
	default:
		return fmt.Sprintf("opcode(%d)", uint32(o))
	}
}

// maxPayloadSize bounds a single inbound frame.
const maxPayloadSize = 64 * 1024

// headerSize is the opcode plus the payload length, both little-endian uint32.
const headerSize = 8

// writeFrame encodes v as JSON and writes it as a single frame.
func writeFrame(w io.Writer, op opcode, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", op, err)
	}

	buf := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(op))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[headerSize:], payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("writing %s frame: %w", op, err)
	}
	return nil
}

// readFrame reads one frame and returns its opcode and raw JSON payload.
func readFrame(r io.Reader) (opcode, []byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, fmt.Errorf("reading frame header: %w", err)
	}

	op := opcode(binary.LittleEndian.Uint32(header[0:4]))
	size := binary.LittleEndian.Uint32(header[4:8])
	if size > maxPayloadSize {
		return 0, nil, fmt.Errorf("%s frame too large: %d bytes", op, size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("reading %s payload: %w", op, err)
	}
	return op, payload, nil
}
