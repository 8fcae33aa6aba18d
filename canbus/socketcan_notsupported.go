//go:build !linux

package canbus

import (
	"context"

	"github.com/pkg/errors"
	"go.einride.tech/can"
)

// Transmitter mimics the type in the linux compiled code.
type Transmitter struct{}

// NewTransmitter is only supported on linux, where SocketCAN lives.
func NewTransmitter(ctx context.Context, iface string) (*Transmitter, error) {
	return nil, errors.New("socketcan is only supported on linux")
}

// Send refuses to transmit off-linux.
func (t *Transmitter) Send(ctx context.Context, frame can.Frame) error {
	return errors.New("socketcan is only supported on linux")
}

// Close does nothing.
func (t *Transmitter) Close() error {
	return nil
}
