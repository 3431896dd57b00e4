package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
	"github.com/hackgods/clinic-scheduling/internal/session"
	"github.com/hackgods/clinic-scheduling/internal/slots"
	"github.com/hackgods/clinic-scheduling/internal/validation"
)

func listSchedulesHandler(svc *schedule.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := principal(r)
		specialistID, err := queryUUID(r, "specialist_id")
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		specialty := strings.TrimSpace(r.URL.Query().Get("specialty"))

		if specialistID == nil && p.IsSpecialist() {
			specialistID = &p.UserID
		}

		var list []schedule.WeeklySchedule
		switch {
		case specialistID == nil && p.IsAdmin():
			list, err = svc.ListAll(r.Context())
		case specialistID != nil && specialty != "":
			list, err = svc.GetBySpecialty(r.Context(), *specialistID, specialty)
		case specialistID != nil:
			list, err = svc.Get(r.Context(), *specialistID)
		default:
			err = apperr.Validation("specialist_id is required")
		}
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// decodeSchedule reads a ScheduleRequest, defaulting the pair to the
// calling specialist.
func decodeSchedule(r *http.Request) (session.Principal, ScheduleRequest, error) {
	p := principal(r)
	var req ScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		return p, req, err
	}
	if req.SpecialistID == nil {
		req.SpecialistID = &p.UserID
	}
	if strings.TrimSpace(req.Specialty) == "" {
		req.Specialty = p.Specialty
	}
	return p, req, validation.Struct(req)
}

type scheduleWrite func(ctx context.Context, p session.Principal, specialistID uuid.UUID, specialty string, in schedule.Input) (*schedule.WeeklySchedule, error)

func writeScheduleHandler(write scheduleWrite, status int, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, req, err := decodeSchedule(r)
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		ws, err := write(r.Context(), p, *req.SpecialistID, req.Specialty, req.Input)
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		writeJSON(w, status, ws)
	}
}

func createScheduleHandler(svc *schedule.Service, log *zap.Logger) http.HandlerFunc {
	return writeScheduleHandler(svc.Create, http.StatusCreated, log)
}

func saveScheduleHandler(svc *schedule.Service, log *zap.Logger) http.HandlerFunc {
	return writeScheduleHandler(svc.Save, http.StatusOK, log)
}

func updateScheduleHandler(svc *schedule.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		var patch schedule.Patch
		if err := decodeJSON(r, &patch); err != nil {
			handleError(log, w, r, err)
			return
		}
		ws, err := svc.Update(r.Context(), principal(r), id, patch)
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ws)
	}
}

func deleteScheduleHandler(svc *schedule.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		if err := svc.Delete(r.Context(), principal(r), id); err != nil {
			handleError(log, w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func slotsHandler(svc *slots.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialistID, err := pathUUID(r, "id")
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		specialty, err := requiredQuery(r, "specialty")
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		list, err := svc.Generate(r.Context(), specialistID, specialty)
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func availableDaysHandler(svc *slots.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialistID, err := pathUUID(r, "id")
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		specialty, err := requiredQuery(r, "specialty")
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		days, err := svc.AvailableDays(r.Context(), specialistID, specialty)
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, days)
	}
}
