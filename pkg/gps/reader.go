package gps

import (
	"bufio"
	"context"
	"errors"
	"io"
	"time"

	"github.com/benmeehan/fleet-locator/pkg/location"
	"github.com/tarm/serial"
)

// ErrNoFix is returned when the receiver produced no usable position.
var ErrNoFix = errors.New("no valid GPS fix found")

// maxLines bounds how many sentences are scanned for a single fix.
const maxLines = 200

// PortOpener opens the stream NMEA sentences are read from.
type PortOpener func() (io.ReadCloser, error)

// Reader reads position fixes from a GPS receiver attached to a serial port.
type Reader struct {
	open PortOpener
}

// NewSerialReader creates a Reader for the receiver on port at baudRate.
func NewSerialReader(port string, baudRate int) *Reader {
	return NewReader(func() (io.ReadCloser, error) {
		return serial.OpenPort(&serial.Config{
			Name:        port,
			Baud:        baudRate,
			ReadTimeout: 2 * time.Second,
		})
	})
}

// NewReader creates a Reader over an arbitrary sentence source.
func NewReader(open PortOpener) *Reader {
	return &Reader{open: open}
}

// ReadFix opens the port, scans sentences until one carries a fix, and
// returns it as a reading payload in the positioning receiver layout.
func (r *Reader) ReadFix(ctx context.Context) (location.Payload, error) {
	port, err := r.open()
	if err != nil {
		return nil, err
	}
	defer port.Close() // Ensure the port is closed when done

	scanner := bufio.NewScanner(port)
	for n := 0; n < maxLines && scanner.Scan(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Text()
		c, ok := location.ParseNMEA(line)
		if !ok {
			continue
		}

		gps := map[string]any{
			"latitude":  c.Lat,
			"longitude": c.Lng,
		}
		if c.Altitude != nil {
			gps["altitude"] = *c.Altitude
		}
		if c.Accuracy != nil {
			gps["accuracy"] = *c.Accuracy // HDOP as a proxy for accuracy
		}
		return location.Payload{"gps": gps, "nmea": line}, nil
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNoFix
}
