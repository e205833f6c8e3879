//go:build linux || darwin
// +build linux darwin

package utils

import (
	"context"
	"fmt"
	"net"
	"sync"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

type SocketCANWriter struct {
	conn net.Conn
	tx   *socketcan.Transmitter
}

func NewSocketCANWriter(ctx context.Context, iface string) (*SocketCANWriter, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, fmt.Errorf("socketcan dial %s: %w", iface, err)
	}
	return &SocketCANWriter{
		conn: conn,
		tx:   socketcan.NewTransmitter(conn),
	}, nil
}

func (w *SocketCANWriter) WriteFrame(ctx context.Context, frame can.Frame) error {
	return w.tx.TransmitFrame(ctx, frame)
}

func (w *SocketCANWriter) Close() error {
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}

// SocketCANReader receives frames on its own socket. One goroutine drives
// the receiver; ReadFrame hands frames over so callers can be cancelled.
type SocketCANReader struct {
	conn    net.Conn
	frames  chan can.Frame
	done    chan struct{}
	closing chan struct{}
	once    sync.Once
	err     error
}

func NewSocketCANReader(ctx context.Context, iface string) (*SocketCANReader, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, fmt.Errorf("socketcan dial %s: %w", iface, err)
	}
	r := &SocketCANReader{
		conn:    conn,
		frames:  make(chan can.Frame),
		done:    make(chan struct{}),
		closing: make(chan struct{}),
	}
	go r.pump(socketcan.NewReceiver(conn))
	return r, nil
}

func (r *SocketCANReader) pump(recv *socketcan.Receiver) {
	defer close(r.done)
	for recv.Receive() {
		if recv.HasErrorFrame() {
			continue
		}
		select {
		case r.frames <- recv.Frame():
		case <-r.closing:
			return
		}
	}
	r.err = recv.Err()
}

func (r *SocketCANReader) ReadFrame(ctx context.Context) (can.Frame, error) {
	select {
	case <-ctx.Done():
		return can.Frame{}, ctx.Err()
	case f := <-r.frames:
		return f, nil
	case <-r.done:
		if r.err != nil {
			return can.Frame{}, fmt.Errorf("receive: %w", r.err)
		}
		return can.Frame{}, fmt.Errorf("receive: socket closed")
	}
}

// Close closes the socket, which also ends the receive goroutine.
func (r *SocketCANReader) Close() error {
	r.once.Do(func() { close(r.closing) })
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
