package mocks

import (
	"context"
	"time"

	"github.com/benmeehan/fleet-locator/pkg/geolocate"
	"github.com/benmeehan/fleet-locator/pkg/location"
	"github.com/stretchr/testify/mock"
)

// Geolocator is a mock implementation of the geolocate.Geolocator interface
type Geolocator struct {
	mock.Mock
}

func (m *Geolocator) Geolocate(ctx context.Context, aps []geolocate.AccessPoint) (location.Coordinates, error) {
	args := m.Called(ctx, aps)
	return args.Get(0).(location.Coordinates), args.Error(1)
}

// LocationSink is a mock implementation of the services.LocationSink interface
type LocationSink struct {
	mock.Mock
}

func (m *LocationSink) WriteLocation(r location.Resolved, at time.Time) bool {
	args := m.Called(r, at)
	return args.Bool(0)
}

// FixReader is a mock implementation of the services.FixReader interface
type FixReader struct {
	mock.Mock
}

func (m *FixReader) ReadFix(ctx context.Context) (location.Payload, error) {
	args := m.Called(ctx)
	payload, _ := args.Get(0).(location.Payload)
	return payload, args.Error(1)
}
