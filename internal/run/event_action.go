package run

import (
	"github.com/banshee-data/primarygen/internal/detector"
	"github.com/banshee-data/primarygen/internal/event"
)

// EventRecord is the finished per-event output handed to the RecordWriter.
type EventRecord struct {
	EventID      int                 `json:"event_id"`
	Worker       int                 `json:"worker"`
	NumVertices  int                 `json:"num_vertices"`
	NumPrimaries int                 `json:"num_primaries"`
	GenParticles []event.GenParticle `json:"gen_particles"`
}

// EventAction collects the generated-particle records of the event currently
// being processed by one worker. It is the record sink the primary generator
// action appends to.
type EventAction struct {
	worker    int
	structure []detector.SamplingSection
	current   EventRecord
}

// NewEventAction returns the event action for a worker.
func NewEventAction(worker int) *EventAction {
	return &EventAction{worker: worker}
}

// Add registers the detector sampling structure.
func (a *EventAction) Add(structure []detector.SamplingSection) {
	a.structure = structure
}

// Structure returns the registered detector structure.
func (a *EventAction) Structure() []detector.SamplingSection {
	return a.structure
}

// BeginOfEvent starts a fresh record collection for event id.
func (a *EventAction) BeginOfEvent(id int) {
	a.current = EventRecord{EventID: id, Worker: a.worker}
}

// AddGenParticle appends a generated-particle record to the current event.
func (a *EventAction) AddGenParticle(rec event.GenParticle) {
	a.current.GenParticles = append(a.current.GenParticles, rec)
}

// GenParticles returns the records collected so far for the current event.
func (a *EventAction) GenParticles() []event.GenParticle {
	return a.current.GenParticles
}

// EndOfEvent closes the current event and returns its record. The action
// keeps no reference to the returned slices.
func (a *EventAction) EndOfEvent(evt *event.Event) EventRecord {
	rec := a.current
	rec.NumVertices = len(evt.Vertices)
	rec.NumPrimaries = evt.NumPrimaries()
	a.current = EventRecord{Worker: a.worker}
	return rec
}
