// internal/poller/modbus/client_test.go
package modbus

import (
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ---- fake gateways ----

// crc16 is the Modbus RTU checksum (poly 0xA001, init 0xFFFF), low byte first on the wire.
func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

func withCRC(frame []byte) []byte {
	c := crc16(frame)
	return append(frame, byte(c), byte(c>>8))
}

type rtuReply func(req []byte) []byte

// serveRTU accepts one connection and answers each 8-byte RTU request with reply.
func serveRTU(t *testing.T, reply rtuReply) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		req := make([]byte, 8)
		for {
			if _, err := io.ReadFull(conn, req); err != nil {
				return
			}
			if _, err := conn.Write(reply(req)); err != nil {
				return
			}
		}
	}()

	return ln.Addr().String()
}

func registersReply(values ...uint16) rtuReply {
	return func(req []byte) []byte {
		frame := []byte{req[0], req[1], byte(len(values) * 2)}
		for _, v := range values {
			frame = binary.BigEndian.AppendUint16(frame, v)
		}
		return withCRC(frame)
	}
}

// ---- RTU over TCP ----

func TestRTU_ReadInputRegisters(t *testing.T) {
	seen := make(chan []byte, 1)
	addr := serveRTU(t, func(req []byte) []byte {
		seen <- append([]byte(nil), req...)
		return registersReply(215, 217, 216)(req)
	})

	c, err := New(Config{Endpoint: addr, UnitID: 1, Framing: FramingRTU, Timeout: time.Second})
	require.NoError(t, err)
	defer c.Close()

	regs, err := c.ReadInputRegisters(0, 3)
	require.NoError(t, err)
	require.Equal(t, []uint16{215, 217, 216}, regs)

	// slave 1, FC 4, addr 0, qty 3, CRC
	require.Equal(t, withCRC([]byte{0x01, 0x04, 0x00, 0x00, 0x00, 0x03}), <-seen)
}

func TestRTU_BadCRCRejected(t *testing.T) {
	addr := serveRTU(t, func(req []byte) []byte {
		out := registersReply(1, 2)(req)
		out[len(out)-1] ^= 0xFF
		return out
	})

	c, err := New(Config{Endpoint: addr, UnitID: 1, Timeout: time.Second})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.ReadInputRegisters(0, 2)
	require.Error(t, err)
}

func TestRTU_ExceptionResponse(t *testing.T) {
	addr := serveRTU(t, func(req []byte) []byte {
		return withCRC([]byte{req[0], req[1] | 0x80, 0x02}) // illegal data address
	})

	c, err := New(Config{Endpoint: addr, UnitID: 1, Timeout: time.Second})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.ReadInputRegisters(0, 8)
	require.Error(t, err)
}

func TestRTU_ShortPayloadRejected(t *testing.T) {
	addr := serveRTU(t, registersReply(1, 2)) // 2 registers for a 3 register request

	c, err := New(Config{Endpoint: addr, UnitID: 1, Timeout: time.Second})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.ReadInputRegisters(0, 3)
	require.Error(t, err)
}

func TestRTU_TimeoutWhenGatewaySilent(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = io.Copy(io.Discard, conn)
	}()

	c, err := New(Config{Endpoint: ln.Addr().String(), UnitID: 1, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	defer c.Close()

	start := time.Now()
	_, err = c.ReadInputRegisters(0, 1)
	require.Error(t, err)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestNew_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = New(Config{Endpoint: addr, UnitID: 1, Timeout: 200 * time.Millisecond})
	require.Error(t, err)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	_, err = New(Config{Endpoint: "127.0.0.1:1", Framing: "ascii"})
	require.Error(t, err)
}

// ---- Modbus TCP ----

func TestTCP_ReadInputRegisters(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		// MBAP(7) + FC(1) + addr(2) + qty(2)
		req := make([]byte, 12)
		if _, err := io.ReadFull(conn, req); err != nil {
			return
		}

		values := []uint16{301, 302}
		resp := make([]byte, 0, 9+2*len(values))
		resp = append(resp, req[0], req[1], 0, 0) // echo TID, protocol 0
		resp = binary.BigEndian.AppendUint16(resp, uint16(3+2*len(values)))
		resp = append(resp, req[6], 0x04, byte(2*len(values)))
		for _, v := range values {
			resp = binary.BigEndian.AppendUint16(resp, v)
		}
		_, _ = conn.Write(resp)
	}()

	c, err := New(Config{Endpoint: ln.Addr().String(), UnitID: 1, Framing: FramingTCP, Timeout: time.Second})
	require.NoError(t, err)
	defer c.Close()

	regs, err := c.ReadInputRegisters(0, 2)
	require.NoError(t, err)
	require.Equal(t, []uint16{301, 302}, regs)
}

func TestResponseLength(t *testing.T) {
	require.Equal(t, 5+16, responseLength([]byte{0x01, 0x04, 16}))
	require.Equal(t, 5, responseLength([]byte{0x01, 0x84, 0x02}))
}
