//go:build linux

package canbus

import (
	"context"
	"net"

	"github.com/pkg/errors"
	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

// Transmitter writes frames to a SocketCAN interface such as can0 or vcan0.
type Transmitter struct {
	conn net.Conn
	tx   *socketcan.Transmitter
}

// NewTransmitter dials the named CAN interface.
func NewTransmitter(ctx context.Context, iface string) (*Transmitter, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open can interface %q", iface)
	}
	return &Transmitter{conn: conn, tx: socketcan.NewTransmitter(conn)}, nil
}

// Send transmits one frame.
func (t *Transmitter) Send(ctx context.Context, frame can.Frame) error {
	return errors.Wrap(t.tx.TransmitFrame(ctx, frame), "can transmit")
}

// Close tears the connection down.
func (t *Transmitter) Close() error {
	return t.conn.Close()
}
