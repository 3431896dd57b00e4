// Package memory holds map-backed repositories for single-process runs
// (STORE_DRIVER=memory) and tests. Conditional writes are atomic under
// each repository's mutex.
package memory

import (
	"sync"
	"time"
)

type Store struct {
	Schedules    *Schedules
	Appointments *Appointments
	Records      *Records
}

func NewStore() *Store {
	return &Store{
		Schedules:    NewSchedules(),
		Appointments: NewAppointments(),
		Records:      NewRecords(),
	}
}

// faults lets tests make every call of a repository fail.
type faults struct {
	mu  sync.Mutex
	err error
}

func (f *faults) Fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *faults) check() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func now() time.Time {
	return time.Now().UTC()
}
