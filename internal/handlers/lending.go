package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"spending-tracker/internal/models"
)

func validateLending(l models.Lending) error {
	if _, err := time.Parse(time.DateOnly, l.Date); err != nil {
		return errors.New("date must be YYYY-MM-DD")
	}
	if strings.TrimSpace(l.PersonName) == "" {
		return errors.New("personName is required")
	}
	if l.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	if l.Type != models.Lent && l.Type != models.Borrowed {
		return errors.New(`type must be "lent" or "borrowed"`)
	}
	return nil
}

// ListLendings returns lending records. With ?active=true only unpaid records
// are listed.
func (h *Handlers) ListLendings(w http.ResponseWriter, r *http.Request) {
	list := h.tracker.Lending.GetAllLendings()
	if r.URL.Query().Get("active") == "true" {
		list = h.tracker.Lending.GetActiveLendings()
	}
	writeJSON(w, http.StatusOK, map[string][]models.Lending{"lendings": list})
}

// LendingTotals reports the outstanding amounts in both directions.
func (h *Handlers) LendingTotals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]float64{
		"lent":     h.tracker.Lending.GetTotalLent(),
		"borrowed": h.tracker.Lending.GetTotalBorrowed(),
		"net":      h.tracker.Lending.GetNetLending(),
	})
}

// CreateLending records money lent or borrowed.
func (h *Handlers) CreateLending(w http.ResponseWriter, r *http.Request) {
	var l models.Lending
	if err := decode(r, &l); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := validateLending(l); err != nil {
		badRequest(w, err.Error())
		return
	}
	created, err := h.tracker.Lending.AddLending(l)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateLending replaces the record named in the path.
func (h *Handlers) UpdateLending(w http.ResponseWriter, r *http.Request) {
	var l models.Lending
	if err := decode(r, &l); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := validateLending(l); err != nil {
		badRequest(w, err.Error())
		return
	}
	l.ID = r.PathValue("id")
	if err := h.tracker.Lending.UpdateLending(l); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteLending removes the record named in the path.
func (h *Handlers) DeleteLending(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.Lending.DeleteLending(r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkRepaid closes a record. The optional body {"date": "YYYY-MM-DD"} sets
// the repayment date, which otherwise defaults to today.
func (h *Handlers) MarkRepaid(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if err := decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, err.Error())
		return
	}
	if req.Date != "" {
		if _, err := time.Parse(time.DateOnly, req.Date); err != nil {
			badRequest(w, "date must be YYYY-MM-DD")
			return
		}
	}
	if err := h.tracker.Lending.MarkAsRepaid(r.PathValue("id"), req.Date); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
