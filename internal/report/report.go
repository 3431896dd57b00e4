// Package report aggregates appointments for the administrators' dashboard.
package report

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/session"
)

type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Summary counts reserved appointments only. Open rows are not requests.
type Summary struct {
	From                  *time.Time `json:"from,omitempty"`
	To                    *time.Time `json:"to,omitempty"`
	Total                 int        `json:"total"`
	BySpecialty           []Count    `json:"by_specialty"`
	ByDay                 []Count    `json:"by_day"`
	RequestedBySpecialist []Count    `json:"requested_by_specialist"`
	CompletedBySpecialist []Count    `json:"completed_by_specialist"`
}

type AppointmentSource interface {
	ListAll(ctx context.Context) ([]appointment.Appointment, error)
}

type Service struct {
	source AppointmentSource
	loc    *time.Location
	log    *zap.Logger
}

func NewService(source AppointmentSource, loc *time.Location, log *zap.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{source: source, loc: loc, log: log}
}

// Appointments summarises the appointments dated in [from, to). Either
// bound may be zero to leave that side open.
func (s *Service) Appointments(ctx context.Context, p session.Principal, from, to time.Time) (*Summary, error) {
	if !p.IsAdmin() {
		return nil, apperr.Forbidden("only administrators can see reports")
	}
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		return nil, apperr.Validation("the end of the range must be after its start")
	}

	list, err := s.source.ListAll(ctx)
	if err != nil {
		return nil, apperr.Store("load appointments", err)
	}

	sum := Summarize(list, s.loc, from, to)
	s.log.Debug("appointment report built",
		zap.Int("total", sum.Total),
		zap.Time("from", from),
		zap.Time("to", to),
	)
	return &sum, nil
}

// Summarize is the pure aggregation behind Appointments. Days are
// calendar days in loc.
func Summarize(list []appointment.Appointment, loc *time.Location, from, to time.Time) Summary {
	var (
		sum         Summary
		bySpecialty = map[string]int{}
		byDay       = map[string]int{}
		requested   = map[string]int{}
		completed   = map[string]int{}
	)
	if !from.IsZero() {
		sum.From = &from
	}
	if !to.IsZero() {
		sum.To = &to
	}

	for _, a := range list {
		if a.IsOpen() {
			continue
		}
		if !from.IsZero() && a.DateTime.Before(from) {
			continue
		}
		if !to.IsZero() && !a.DateTime.Before(to) {
			continue
		}

		sum.Total++
		specialty := a.Specialty
		if specialty == "" {
			specialty = "unspecified"
		}
		bySpecialty[specialty]++
		byDay[a.DateTime.In(loc).Format("2006-01-02")]++

		specialist := a.SpecialistID.String()
		requested[specialist]++
		if a.CurrentStatus() == appointment.StatusCompleted {
			completed[specialist]++
		}
	}

	sum.BySpecialty = byCountDesc(bySpecialty)
	sum.ByDay = byKey(byDay)
	sum.RequestedBySpecialist = byCountDesc(requested)
	sum.CompletedBySpecialist = byCountDesc(completed)
	return sum
}

func counts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Key: k, Count: v})
	}
	return out
}

func byKey(m map[string]int) []Count {
	out := counts(m)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func byCountDesc(m map[string]int) []Count {
	out := counts(m)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
