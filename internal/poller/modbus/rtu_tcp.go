// internal/poller/modbus/rtu_tcp.go
package modbus

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

const (
	rtuHeaderSize = 3 // slave id, function code, byte count | exception code
	rtuCRCSize    = 2
	rtuMaxSize    = 256
)

// rtuTransporter implements goburrow's Transporter for RTU frames carried
// over a TCP socket (serial tunnel). Read functions only: the response
// length is derived from the byte count in the third byte.
type rtuTransporter struct {
	mu      sync.Mutex
	conn    net.Conn
	timeout time.Duration
}

func dialRTU(endpoint string, timeout time.Duration) (*rtuTransporter, error) {
	conn, err := net.DialTimeout("tcp", endpoint, timeout)
	if err != nil {
		return nil, err
	}
	return &rtuTransporter{conn: conn, timeout: timeout}, nil
}

// Send writes one request ADU and reads exactly one response ADU.
func (t *rtuTransporter) Send(aduRequest []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil, fmt.Errorf("modbus rtu: not connected")
	}

	// One deadline covers the whole round trip.
	if err := t.conn.SetDeadline(time.Now().Add(t.timeout)); err != nil {
		return nil, err
	}

	if err := writeAll(t.conn, aduRequest); err != nil {
		return nil, fmt.Errorf("modbus rtu: write: %w", err)
	}

	head := make([]byte, rtuHeaderSize)
	if _, err := io.ReadFull(t.conn, head); err != nil {
		return nil, fmt.Errorf("modbus rtu: read header: %w", err)
	}

	total := responseLength(head)
	if total > rtuMaxSize {
		return nil, fmt.Errorf("modbus rtu: response length %d exceeds %d", total, rtuMaxSize)
	}

	adu := make([]byte, total)
	copy(adu, head)
	if _, err := io.ReadFull(t.conn, adu[rtuHeaderSize:]); err != nil {
		return nil, fmt.Errorf("modbus rtu: read body: %w", err)
	}
	return adu, nil
}

// Close closes the TCP connection.
func (t *rtuTransporter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// responseLength returns the full ADU length announced by a response header.
//
// Normal:    ID(1) FC(1) COUNT(1) DATA(COUNT) CRC(2)
// Exception: ID(1) FC|0x80(1) CODE(1) CRC(2)
func responseLength(head []byte) int {
	if head[1]&0x80 != 0 {
		return rtuHeaderSize + rtuCRCSize
	}
	return rtuHeaderSize + int(head[2]) + rtuCRCSize
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
