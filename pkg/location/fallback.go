package location

// Fallback returns a candidate built from the client's externally-geolocated
// coordinates, such as a network-address lookup.
func Fallback(client Client) (Candidate, bool) {
	if client.ExternalGeo == nil || !client.ExternalGeo.Valid() {
		return Candidate{}, false
	}
	return Candidate{
		Coordinates: *client.ExternalGeo,
		Source:      ExternallyGeolocated,
	}, true
}
