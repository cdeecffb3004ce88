package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ranchops/internal/domain"
	"ranchops/internal/ledger"
	"ranchops/internal/services"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.health.Check(r.Context()))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload services.LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	result, err := s.auth.Login(r.Context(), &payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	writeJSON(w, http.StatusOK, s.auth.Me(r.Context(), user))
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var payload services.CreateUserPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	result, err := s.auth.CreateUser(r.Context(), &payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleCreateEnquiry(w http.ResponseWriter, r *http.Request) {
	var payload services.CreateEnquiryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	result, err := s.enquiry.Create(r.Context(), &payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListEnquiries(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := s.enquiry.List(r.Context(), skip, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleGetEnquiry(w http.ResponseWriter, r *http.Request) {
	id, ok := enquiryID(w, r)
	if !ok {
		return
	}

	result, err := s.enquiry.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleUpdateEnquiryStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := enquiryID(w, r)
	if !ok {
		return
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	result, err := s.enquiry.UpdateStatus(r.Context(), id, payload.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := enquiryID(w, r)
	if !ok {
		return
	}

	var payload struct {
		Amount      *float64 `json:"amount"`
		Type        string   `json:"type"`
		PerformedBy string   `json:"performed_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if payload.Amount == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "amount is required"})
		return
	}

	event, err := s.recorder.Record(r.Context(), ledger.RecordRequest{
		EnquiryID:   id,
		Amount:      *payload.Amount,
		Type:        domain.TransactionType(payload.Type),
		Actor:       actorFromContext(r.Context()),
		PerformedBy: payload.PerformedBy,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := enquiryID(w, r)
	if !ok {
		return
	}

	results, err := s.enquiry.ListTransactions(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := enquiryID(w, r)
	if !ok {
		return
	}

	results, err := s.enquiry.ListAuditLogs(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// enquiryID parses the {id} path parameter, writing a 400 on failure.
func enquiryID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid enquiry id"})
		return 0, false
	}
	return uint(id), true
}
