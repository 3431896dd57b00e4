package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/medrecord"
	"github.com/hackgods/clinic-scheduling/internal/validation"
)

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, key))
	if err != nil {
		return uuid.Nil, apperr.Validation("%s must be a valid UUID", key)
	}
	return id, nil
}

func reserveHandler(svc *appointment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReserveRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(log, w, r, err)
			return
		}

		appt, err := svc.Reserve(r.Context(), principal(r), req.choice())
		if err != nil {
			handleError(log, w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, appt)
	}
}

func listAppointmentsHandler(svc *appointment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context(), principal(r))
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func availableAppointmentsHandler(svc *appointment.Service, loc *time.Location, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, err := queryDate(r, "from", loc, false)
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		to, err := queryDate(r, "to", loc, true)
		if err != nil {
			handleError(log, w, r, err)
			return
		}

		list, err := svc.ListAvailable(r.Context(), r.URL.Query().Get("specialty"), from, to)
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func openSlotsHandler(svc *appointment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialistID, err := pathUUID(r, "id")
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		list, err := svc.ListOpenSlots(r.Context(), principal(r), specialistID)
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func getAppointmentHandler(svc *appointment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		appt, err := svc.Get(r.Context(), principal(r), id)
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func updateAppointmentHandler(svc *appointment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		var patch appointment.Patch
		if err := decodeJSON(r, &patch); err != nil {
			handleError(log, w, r, err)
			return
		}
		appt, err := svc.Update(r.Context(), principal(r), id, patch)
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func bulkDeleteHandler(svc *appointment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BulkDeleteRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(log, w, r, err)
			return
		}
		if err := validation.Struct(req); err != nil {
			handleError(log, w, r, err)
			return
		}
		n, err := svc.BulkDelete(r.Context(), principal(r), req.IDs)
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, BulkDeleteResponse{Deleted: n})
	}
}

func acceptHandler(svc *appointment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		appt, err := svc.Accept(r.Context(), principal(r), id)
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

// reasonHandler serves the transitions that take a written reason.
func reasonHandler(log *zap.Logger, apply func(r *http.Request, id uuid.UUID, reason string) (*appointment.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		var req ReasonRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(log, w, r, err)
			return
		}
		appt, err := apply(r, id, req.Reason)
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func rejectHandler(svc *appointment.Service, log *zap.Logger) http.HandlerFunc {
	return reasonHandler(log, func(r *http.Request, id uuid.UUID, reason string) (*appointment.Appointment, error) {
		return svc.Reject(r.Context(), principal(r), id, reason)
	})
}

func cancelHandler(svc *appointment.Service, log *zap.Logger) http.HandlerFunc {
	return reasonHandler(log, func(r *http.Request, id uuid.UUID, reason string) (*appointment.Appointment, error) {
		return svc.Cancel(r.Context(), principal(r), id, reason)
	})
}

func completeHandler(svc *appointment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		var req CompleteRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(log, w, r, err)
			return
		}

		appt, entry, err := svc.Complete(r.Context(), principal(r), id, req.Notes, req.Record)
		if err != nil && appt == nil {
			handleError(log, w, r, err)
			return
		}
		if err != nil {
			// completed, but the record was not written
			log.Warn("appointment completed without its record",
				zap.String("appointment_id", appt.ID.String()),
				zap.Error(err),
			)
		}
		writeJSON(w, http.StatusOK, CompleteResponse{Appointment: appt, Record: entry})
	}
}

func rateHandler(svc *appointment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		var req RateRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(log, w, r, err)
			return
		}
		appt, err := svc.Rate(r.Context(), principal(r), id, req.Rating, req.Review)
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func addRecordHandler(svc *appointment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		var payload medrecord.Payload
		if err := decodeJSON(r, &payload); err != nil {
			handleError(log, w, r, err)
			return
		}
		entry, err := svc.AddRecord(r.Context(), principal(r), id, payload)
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	}
}
