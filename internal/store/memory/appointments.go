package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
)

type Appointments struct {
	faults
	mu     sync.RWMutex
	byID   map[uuid.UUID]appointment.Appointment
	events []appointment.EventLog
}

func NewAppointments() *Appointments {
	return &Appointments{byID: make(map[uuid.UUID]appointment.Appointment)}
}

func (r *Appointments) filter(keep func(appointment.Appointment) bool) []appointment.Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []appointment.Appointment
	for _, a := range r.byID {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateTime.Equal(out[j].DateTime) {
			return out[i].DateTime.Before(out[j].DateTime)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (r *Appointments) ListAll(ctx context.Context) ([]appointment.Appointment, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	return r.filter(func(appointment.Appointment) bool { return true }), nil
}

func (r *Appointments) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]appointment.Appointment, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	return r.filter(func(a appointment.Appointment) bool { return a.BelongsToPatient(patientID) }), nil
}

func (r *Appointments) ListBySpecialist(ctx context.Context, specialistID uuid.UUID) ([]appointment.Appointment, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	return r.filter(func(a appointment.Appointment) bool {
		return a.SpecialistID == specialistID && !a.IsOpen()
	}), nil
}

func (r *Appointments) ListOpenSlots(ctx context.Context, specialistID uuid.UUID) ([]appointment.Appointment, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	return r.filter(func(a appointment.Appointment) bool { return a.SpecialistID == specialistID }), nil
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func (r *Appointments) ListRange(ctx context.Context, specialistID uuid.UUID, from, to time.Time) ([]appointment.Appointment, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	return r.filter(func(a appointment.Appointment) bool {
		return a.SpecialistID == specialistID && inRange(a.DateTime, from, to)
	}), nil
}

func (r *Appointments) ListAvailable(ctx context.Context, specialty string, from, to time.Time) ([]appointment.Appointment, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	return r.filter(func(a appointment.Appointment) bool {
		return a.Specialty == specialty && a.Enabled && a.IsOpen() && inRange(a.DateTime, from, to)
	}), nil
}

func (r *Appointments) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *Appointments) GetAt(ctx context.Context, specialistID uuid.UUID, at time.Time) (*appointment.Appointment, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if a, ok := r.findAt(specialistID, at); ok {
		return &a, nil
	}
	return nil, appointment.ErrAppointmentNotFound
}

// findAt expects r.mu to be held.
func (r *Appointments) findAt(specialistID uuid.UUID, at time.Time) (appointment.Appointment, bool) {
	for _, a := range r.byID {
		if a.SpecialistID == specialistID && a.DateTime.Equal(at) {
			return a, true
		}
	}
	return appointment.Appointment{}, false
}

func (r *Appointments) Create(ctx context.Context, a appointment.Appointment) (*appointment.Appointment, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.findAt(a.SpecialistID, a.DateTime); taken {
		return nil, appointment.ErrSlotTaken
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = now()
	a.UpdatedAt = a.CreatedAt
	r.byID[a.ID] = a
	return &a, nil
}

func (r *Appointments) Update(ctx context.Context, id uuid.UUID, patch appointment.Patch) (*appointment.Appointment, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	if !a.IsOpen() {
		return nil, appointment.ErrSlotTaken
	}
	if patch.Enabled != nil {
		a.Enabled = *patch.Enabled
	}
	a.UpdatedAt = now()
	r.byID[id] = a
	return &a, nil
}

func (r *Appointments) BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if err := r.check(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, id := range ids {
		if _, ok := r.byID[id]; ok {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

func (r *Appointments) Reserve(ctx context.Context, id, patientID uuid.UUID) (*appointment.Appointment, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok || !a.IsOpen() || !a.Enabled {
		return nil, appointment.ErrSlotTaken
	}
	pid := patientID
	pending := appointment.StatusPending
	a.PatientID = &pid
	a.Status = &pending
	a.UpdatedAt = now()
	r.byID[id] = a
	return &a, nil
}

func (r *Appointments) Transition(ctx context.Context, id uuid.UUID, from []appointment.Status, to appointment.Status, comment string) (*appointment.Appointment, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok || a.IsOpen() || !slices.Contains(from, a.CurrentStatus()) {
		return nil, appointment.ErrStateChanged
	}
	next := to
	a.Status = &next
	if comment != "" {
		a.Comment = comment
	}
	a.UpdatedAt = now()
	r.byID[id] = a
	return &a, nil
}

func (r *Appointments) Rate(ctx context.Context, id uuid.UUID, rating int, review string) (*appointment.Appointment, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok || a.Status == nil || *a.Status != appointment.StatusCompleted || a.Rating != nil {
		return nil, appointment.ErrStateChanged
	}
	v := rating
	a.Rating = &v
	a.Review = review
	a.UpdatedAt = now()
	r.byID[id] = a
	return &a, nil
}

func (r *Appointments) InsertEvent(ctx context.Context, ev appointment.EventLog) error {
	if err := r.check(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	ev.ID = int64(len(r.events) + 1)
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now()
	}
	r.events = append(r.events, ev)
	return nil
}

// Events returns the event log in insertion order.
func (r *Appointments) Events() []appointment.EventLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.events)
}

// Put stores a row as is, bypassing every check. Seeding and tests only.
func (r *Appointments) Put(a appointment.Appointment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.byID[a.ID] = a
}
