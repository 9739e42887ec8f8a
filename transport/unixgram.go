// Package transport owns the scheduler's single datagram endpoint: a
// UNIX-domain SOCK_DGRAM socket bound to a filesystem path. It moves fixed
// size wire.Packet datagrams in and out; it has no opinion about what they
// mean.
package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/edge-infer/scheduler/wire"
)

// ErrShortRead is returned by Receive when a datagram's length does not
// match the fixed packet size. The caller should log and continue; it must
// not treat this as fatal.
var ErrShortRead = errors.New("transport: datagram size does not match packet size")

// Endpoint binds one local datagram socket and exchanges fixed-size
// wire.Packet datagrams with peers identified by their socket path.
type Endpoint struct {
	path string
	conn *net.UnixConn
}

// Bind creates a SOCK_DGRAM socket at path. If a file already exists at
// path it is removed first, matching the reference scheduler's startup
// behavior. Bind failure is treated as fatal by callers: they should log
// and exit with a non-zero status.
func Bind(path string) (*Endpoint, error) {
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("transport: remove stale socket %q: %w", path, err)
		}
	}

	addr, err := net.ResolveUnixAddr("unixgram", path)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %q: %w", path, err)
	}

	conn, err := net.ListenUnixgram("unixgram", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: bind %q: %w", path, err)
	}

	slog.Info("transport bound", "path", path)
	return &Endpoint{path: path, conn: conn}, nil
}

// Close releases the socket and removes the backing file.
func (e *Endpoint) Close() error {
	err := e.conn.Close()
	if rmErr := os.Remove(e.path); rmErr != nil && !os.IsNotExist(rmErr) {
		slog.Warn("transport: failed to remove socket file on close", "path", e.path, "error", rmErr)
	}
	return err
}

// Receive blocks until one datagram arrives, decodes it as a wire.Packet,
// and returns it along with the sender's address so a reply can be routed
// back. A datagram of the wrong size is a protocol error: Receive returns
// ErrShortRead rather than a transport error, so callers can drop it and
// keep looping.
func (e *Endpoint) Receive() (wire.Packet, *net.UnixAddr, error) {
	buf := make([]byte, wire.Size+1) // +1 to detect oversized datagrams
	n, addr, err := e.conn.ReadFromUnix(buf)
	if err != nil {
		return wire.Packet{}, nil, fmt.Errorf("transport: receive: %w", err)
	}

	var p wire.Packet
	if n != wire.Size {
		return wire.Packet{}, addr, fmt.Errorf("%w: got %d bytes", ErrShortRead, n)
	}
	if err := p.Unmarshal(buf[:n]); err != nil {
		return wire.Packet{}, addr, fmt.Errorf("%w: %v", ErrShortRead, err)
	}
	return p, addr, nil
}

// Send encodes p and sends it as a single datagram to addr. It returns the
// number of bytes sent, or a negative value on failure, matching the
// reference scheduler's sendto-style contract.
func (e *Endpoint) Send(p *wire.Packet, addr *net.UnixAddr) (int, error) {
	b, err := p.Marshal()
	if err != nil {
		return -1, fmt.Errorf("transport: encode outgoing packet: %w", err)
	}
	n, err := e.conn.WriteToUnix(b, addr)
	if err != nil {
		return -1, fmt.Errorf("transport: send to %q: %w", addr, err)
	}
	return n, nil
}

// Path returns the filesystem path this endpoint is bound to.
func (e *Endpoint) Path() string {
	return e.path
}
