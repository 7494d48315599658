package location

// Enrich returns a copy of devices where every device without a cached
// coordinate, but with an extractable one, carries it. Devices that already
// have a cached coordinate are never overwritten.
func (r *Resolver) Enrich(devices []DeviceGroup) []DeviceGroup {
	out := make([]DeviceGroup, len(devices))
	for i, d := range devices {
		out[i] = d
		if d.Location != nil {
			continue
		}
		if c, ok := r.Extract(d); ok {
			out[i].Location = &LatLng{Lat: c.Lat, Lng: c.Lng}
		}
	}
	return out
}

// Enrich uses the default resolver.
func Enrich(devices []DeviceGroup) []DeviceGroup {
	return defaultResolver.Enrich(devices)
}
