package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/medrecord"
)

type Records struct {
	faults
	mu      sync.RWMutex
	entries []medrecord.Entry
}

func NewRecords() *Records {
	return &Records{}
}

// newestFirst expects r.mu to be held.
func (r *Records) newestFirst(keep func(medrecord.Entry) bool) []medrecord.Entry {
	var out []medrecord.Entry
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if keep(e) {
			e.Fields = slices.Clone(e.Fields)
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *Records) Create(ctx context.Context, e medrecord.Entry) (*medrecord.Entry, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.entries {
		if existing.AppointmentID == e.AppointmentID {
			return nil, medrecord.ErrDuplicateEntry
		}
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Fields == nil {
		e.Fields = []medrecord.DynamicField{}
	}
	e.CreatedAt = now()
	r.entries = append(r.entries, e)
	return &e, nil
}

func (r *Records) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*medrecord.Entry, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.AppointmentID == appointmentID {
			e.Fields = slices.Clone(e.Fields)
			return &e, nil
		}
	}
	return nil, medrecord.ErrEntryNotFound
}

func (r *Records) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]medrecord.Entry, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.newestFirst(func(e medrecord.Entry) bool { return e.PatientID == patientID }), nil
}

func (r *Records) ListBySpecialist(ctx context.Context, specialistID uuid.UUID) ([]medrecord.Entry, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.newestFirst(func(e medrecord.Entry) bool { return e.SpecialistID == specialistID }), nil
}

func (r *Records) ListAll(ctx context.Context) ([]medrecord.Entry, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.newestFirst(func(medrecord.Entry) bool { return true }), nil
}

func (r *Records) PatientsSeenBy(ctx context.Context, specialistID uuid.UUID) ([]uuid.UUID, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, e := range r.entries {
		if e.SpecialistID != specialistID {
			continue
		}
		if _, dup := seen[e.PatientID]; !dup {
			seen[e.PatientID] = struct{}{}
			out = append(out, e.PatientID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}
