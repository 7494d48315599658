package location

import (
	"sort"

	"github.com/rs/zerolog"
)

// Resolver picks the single best location for a client from its devices.
// A Resolver holds no mutable state and is safe for concurrent use on
// independent inputs.
type Resolver struct {
	classifier *Classifier
	logger     zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClassifier replaces the default keyword table.
func WithClassifier(c *Classifier) Option {
	return func(r *Resolver) {
		if c != nil {
			r.classifier = c
		}
	}
}

// NewResolver creates a Resolver. The logger only receives debug output.
func NewResolver(logger zerolog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		classifier: defaultClassifier,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultResolver = NewResolver(zerolog.Nop())

// Classify returns the category the resolver assigns to a device type label.
func (r *Resolver) Classify(label string) SourceCategory {
	return r.classifier.Classify(label)
}

// Extract runs the category extractor for d over its latest reading,
// ignoring any cached coordinate.
func (r *Resolver) Extract(d DeviceGroup) (Candidate, bool) {
	if d.Latest == nil {
		return Candidate{}, false
	}
	category := r.classifier.Classify(d.TypeLabel)
	c, ok := ExtractorFor(category)(d.Latest.Data)
	if !ok || !c.Valid() {
		return Candidate{}, false
	}
	return Candidate{
		Coordinates: c,
		Source:      category,
		DeviceID:    d.DeviceID,
		Timestamp:   d.Latest.Timestamp,
		Raw:         d.Latest.Data,
	}, true
}

// CandidateFor returns the candidate contributed by one device. A valid cached
// coordinate takes precedence over re-extraction.
func (r *Resolver) CandidateFor(d DeviceGroup) (Candidate, bool) {
	if d.Location != nil && d.Location.Valid() {
		cand := Candidate{
			Coordinates: Coordinates{Lat: d.Location.Lat, Lng: d.Location.Lng},
			Source:      r.classifier.Classify(d.TypeLabel),
			DeviceID:    d.DeviceID,
		}
		if d.Latest != nil {
			cand.Timestamp = d.Latest.Timestamp
			cand.Raw = d.Latest.Data
		}
		return cand, true
	}
	return r.Extract(d)
}

// Candidates collects every valid candidate from devices, sorted by source
// priority. Devices of equal priority keep their input order.
func (r *Resolver) Candidates(devices []DeviceGroup) []Candidate {
	candidates := make([]Candidate, 0, len(devices))
	for _, d := range devices {
		c, ok := r.CandidateFor(d)
		if !ok {
			continue
		}
		if !c.Valid() {
			continue
		}
		r.logger.Debug().
			Str("device_id", d.DeviceID).
			Str("source", c.Source.String()).
			Float64("lat", c.Lat).
			Float64("lng", c.Lng).
			Msg("Location candidate found")
		candidates = append(candidates, c)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Source.Less(candidates[j].Source)
	})
	return candidates
}

// Resolve returns the best location for client. When no device yields a
// candidate the client's externally-geolocated coordinates are used, and
// failing that the result has Source Unknown and no candidate.
// The devices slice is not modified.
func (r *Resolver) Resolve(client Client, devices []DeviceGroup) Resolved {
	candidates := r.Candidates(devices)
	if len(candidates) > 0 {
		best := candidates[0]
		return Resolved{
			ClientID:   client.ID,
			Source:     best.Source,
			Candidate:  &best,
			Candidates: len(candidates),
		}
	}

	if fallback, ok := Fallback(client); ok {
		r.logger.Debug().Str("client_id", client.ID).Msg("Using externally-geolocated fallback")
		return Resolved{
			ClientID:  client.ID,
			Source:    fallback.Source,
			Candidate: &fallback,
		}
	}

	r.logger.Debug().Str("client_id", client.ID).Int("devices", len(devices)).Msg("No location available")
	return Resolved{ClientID: client.ID, Source: Unknown}
}

// Resolve uses the default resolver.
func Resolve(client Client, devices []DeviceGroup) Resolved {
	return defaultResolver.Resolve(client, devices)
}
