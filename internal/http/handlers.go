package http

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"
	"time"

	"ipon/internal/core"
	"ipon/internal/report"
	"ipon/internal/services"
)

// maxProofSize bounds the multipart form held in memory while the proof
// image is streamed to the media host.
const maxProofSize = 10 << 20

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, snap.Members)
}

type memberRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	member, err := s.tracker.AddMember(r.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, member)
}

func (s *Server) handleRenameMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := s.tracker.RenameMember(r.Context(), r.PathValue("id"), strings.TrimSpace(req.Name)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteMember(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListContributions serves the ledger feed, newest first, optionally
// narrowed by a case-insensitive name fragment and an inclusive date range.
func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	from, err := parseDateParam(q.Get("from"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := parseDateParam(q.Get("to"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	filtered := report.FilterContributions(snap.Contributions, q.Get("name"), from, to)
	writeJSON(w, r, http.StatusOK, filtered)
}

type contributionRequest struct {
	MemberName string `json:"memberName"`
	Amount     string `json:"amount"`
	Date       string `json:"date"`
}

func (s *Server) handleAddContribution(w http.ResponseWriter, r *http.Request) {
	input, cleanup, err := s.parseContributionRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer cleanup()

	saved, err := s.tracker.AddContribution(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, saved)
}

// parseContributionRequest accepts either multipart/form-data with an
// optional proof file, or a plain JSON body.
func (s *Server) parseContributionRequest(r *http.Request) (services.ContributionInput, func(), error) {
	cleanup := func() {}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxProofSize); err != nil {
			return services.ContributionInput{}, cleanup, core.ErrInvalidAmount
		}

		amount, err := core.ParseAmount(r.FormValue("amount"))
		if err != nil {
			return services.ContributionInput{}, cleanup, err
		}
		ts, err := parseDateParam(r.FormValue("date"))
		if err != nil || ts.IsZero() {
			return services.ContributionInput{}, cleanup, core.ErrInvalidDate
		}

		input := services.ContributionInput{
			MemberName: strings.TrimSpace(r.FormValue("memberName")),
			Amount:     amount,
			Timestamp:  ts,
		}

		if file, header, err := r.FormFile("proof"); err == nil {
			input.Proof = &services.ProofFile{
				Filename: header.Filename,
				Content:  file,
			}
			cleanup = func() { file.Close() }
		}

		return input, cleanup, nil
	}

	var req contributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return services.ContributionInput{}, cleanup, core.ErrInvalidAmount
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return services.ContributionInput{}, cleanup, err
	}
	ts, err := parseDateParam(req.Date)
	if err != nil || ts.IsZero() {
		return services.ContributionInput{}, cleanup, core.ErrInvalidDate
	}

	return services.ContributionInput{
		MemberName: strings.TrimSpace(req.MemberName),
		Amount:     amount,
		Timestamp:  ts,
	}, cleanup, nil
}

type updateContributionRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleUpdateContribution(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxProofSize); err != nil {
			writeError(w, r, core.ErrInvalidAmount)
			return
		}
		amount, err := core.ParseAmount(r.FormValue("amount"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		var proof *services.ProofFile
		if file, header, err := r.FormFile("proof"); err == nil {
			defer file.Close()
			proof = &services.ProofFile{Filename: header.Filename, Content: file}
		}

		if err := s.tracker.UpdateContribution(r.Context(), id, amount, proof); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var req updateContributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.tracker.UpdateContribution(r.Context(), id, amount, nil); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteContribution(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteContribution(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMonthlyReport serves the compliance report for the requested month,
// defaulting to the month containing now.
func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	q := r.URL.Query()

	month, err := parseIntParam(q.Get("month"), int(now.Month()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	year, err := parseIntParam(q.Get("year"), now.Year())
	if err != nil {
		writeError(w, r, err)
		return
	}

	snap, err := s.snapshot(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	monthly, err := report.Monthly(snap.Members, snap.Contributions, month, year, s.expected)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, monthly)
}

type memberTotal struct {
	Name  string     `json:"name"`
	Total core.Money `json:"total"`
}

type totalsResponse struct {
	TotalSavings core.Money    `json:"totalSavings"`
	MemberTotals []memberTotal `json:"memberTotals"`
}

// handleTotals serves the all-time pot and per-member lifetime totals.
func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := totalsResponse{
		TotalSavings: report.TotalSavings(snap.Contributions),
		MemberTotals: make([]memberTotal, 0, len(snap.Members)),
	}
	for _, m := range snap.Members {
		resp.MemberTotals = append(resp.MemberTotals, memberTotal{
			Name:  m.Name,
			Total: report.MemberTotal(snap.Contributions, m.Name),
		})
	}
	writeJSON(w, r, http.StatusOK, resp)
}
