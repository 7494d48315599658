package store

import (
	"sort"

	"github.com/benmeehan/fleet-locator/pkg/location"
	cmap "github.com/orcaman/concurrent-map/v2"
)

// Store keeps the latest known state of every device and client record.
// All methods are safe for concurrent use. Returned slices are snapshots.
type Store struct {
	devices cmap.ConcurrentMap[string, location.DeviceGroup]
	clients cmap.ConcurrentMap[string, location.Client]
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		devices: cmap.New[location.DeviceGroup](),
		clients: cmap.New[location.Client](),
	}
}

// UpsertReading records r as the latest reading of deviceID. Readings older
// than the stored one are ignored and false is returned. A cached device
// location is kept as is.
func (s *Store) UpsertReading(deviceID string, r location.Reading) bool {
	applied := true
	s.devices.Upsert(deviceID, location.DeviceGroup{}, func(exist bool, current, _ location.DeviceGroup) location.DeviceGroup {
		if !exist {
			current = location.DeviceGroup{DeviceID: deviceID}
		} else if current.Latest != nil && r.Timestamp.Before(current.Latest.Timestamp) {
			applied = false
			return current
		}
		reading := r
		current.Latest = &reading
		if r.TypeLabel != "" {
			current.TypeLabel = r.TypeLabel
		}
		if r.ClientID != "" {
			current.ClientID = r.ClientID
		}
		return current
	})
	return applied
}

// PutDevice stores d as is, replacing any previous state.
func (s *Store) PutDevice(d location.DeviceGroup) {
	s.devices.Set(d.DeviceID, d)
}

// Device returns the state of one device.
func (s *Store) Device(deviceID string) (location.DeviceGroup, bool) {
	return s.devices.Get(deviceID)
}

// Devices returns every device ordered by id.
func (s *Store) Devices() []location.DeviceGroup {
	return s.filterDevices(func(location.DeviceGroup) bool { return true })
}

// DevicesFor returns the devices owned by clientID ordered by id. The
// order is what makes equal-priority tie-breaks deterministic.
func (s *Store) DevicesFor(clientID string) []location.DeviceGroup {
	return s.filterDevices(func(d location.DeviceGroup) bool { return d.ClientID == clientID })
}

func (s *Store) filterDevices(keep func(location.DeviceGroup) bool) []location.DeviceGroup {
	out := make([]location.DeviceGroup, 0, s.devices.Count())
	for _, d := range s.devices.Items() {
		if keep(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// UpsertClient replaces a client record. An empty ExternalGeo in c does not
// clear a previously stored one.
func (s *Store) UpsertClient(c location.Client) {
	s.clients.Upsert(c.ID, c, func(exist bool, current, next location.Client) location.Client {
		if exist && next.ExternalGeo == nil {
			next.ExternalGeo = current.ExternalGeo
		}
		return next
	})
}

// SetExternalGeo stores the externally-geolocated coordinates of a client.
func (s *Store) SetExternalGeo(clientID string, geo location.Coordinates) {
	s.clients.Upsert(clientID, location.Client{}, func(exist bool, current, _ location.Client) location.Client {
		if !exist {
			current = location.Client{ID: clientID}
		}
		g := geo
		current.ExternalGeo = &g
		return current
	})
}

// Client returns the record for clientID. A client known only through its
// devices is returned as a bare record.
func (s *Store) Client(clientID string) (location.Client, bool) {
	if c, ok := s.clients.Get(clientID); ok {
		return c, true
	}
	for _, d := range s.devices.Items() {
		if d.ClientID == clientID {
			return location.Client{ID: clientID}, true
		}
	}
	return location.Client{}, false
}

// ClientIDs returns every client with a record or at least one device, sorted.
func (s *Store) ClientIDs() []string {
	ids := make(map[string]struct{})
	for _, id := range s.clients.Keys() {
		ids[id] = struct{}{}
	}
	for _, d := range s.devices.Items() {
		if d.ClientID != "" {
			ids[d.ClientID] = struct{}{}
		}
	}
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Load seeds the store with clients and devices.
func (s *Store) Load(clients []location.Client, devices []location.DeviceGroup) {
	for _, c := range clients {
		s.UpsertClient(c)
	}
	for _, d := range devices {
		s.PutDevice(d)
	}
}
