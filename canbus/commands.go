// Package canbus encodes drive commands as CAN frames and transmits them over
// SocketCAN, bridging the controller to drive-by-wire hardware.
package canbus

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
	"go.einride.tech/can"

	"github.com/veldrive/pathmpc/vehicle"
)

// DriveCommandID identifies the drive-command frame on the bus.
const DriveCommandID = 0x2D1

// Wire scaling: steering travels as centidegrees, acceleration as per-mille
// of the normalized range, both signed 16-bit little-endian.
const (
	steerScale = 100 * 180 / math.Pi
	accelScale = 1000
)

const flagSolved = 0x01

// Command is a decoded drive-command frame.
type Command struct {
	// Actuation carries the steering angle in radians and the normalized
	// acceleration, reconstructed from their wire encodings.
	Actuation vehicle.Actuation
	// Counter increments with every issued command so receivers can spot
	// dropped or stale frames.
	Counter uint8
	// Solved is false when the sender was running on its fallback policy.
	Solved bool
}

// Encode packs a command into its frame. Values beyond the wire encoding's
// range are clamped.
func Encode(u vehicle.Actuation, counter uint8, solved bool) can.Frame {
	frame := can.Frame{ID: DriveCommandID, Length: 8}
	binary.LittleEndian.PutUint16(frame.Data[0:2], uint16(clampInt16(u.Steer*steerScale)))
	binary.LittleEndian.PutUint16(frame.Data[2:4], uint16(clampInt16(u.Accel*accelScale)))
	frame.Data[4] = counter
	if solved {
		frame.Data[5] = flagSolved
	}
	return frame
}

// Decode unpacks a drive-command frame.
func Decode(frame can.Frame) (Command, error) {
	if frame.ID != DriveCommandID {
		return Command{}, errors.Errorf("frame ID 0x%X is not a drive command", frame.ID)
	}
	if frame.Length != 8 {
		return Command{}, errors.Errorf("drive command must be 8 bytes, got %d", frame.Length)
	}
	steerRaw := int16(binary.LittleEndian.Uint16(frame.Data[0:2]))
	accelRaw := int16(binary.LittleEndian.Uint16(frame.Data[2:4]))
	return Command{
		Actuation: vehicle.Actuation{
			Steer: float64(steerRaw) / steerScale,
			Accel: float64(accelRaw) / accelScale,
		},
		Counter: frame.Data[4],
		Solved:  frame.Data[5]&flagSolved != 0,
	}, nil
}

func clampInt16(v float64) int16 {
	r := math.Round(v)
	if r > math.MaxInt16 {
		return math.MaxInt16
	}
	if r < math.MinInt16 {
		return math.MinInt16
	}
	return int16(r)
}
