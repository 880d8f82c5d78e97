package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/ingest"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/money"
	"github.com/Veraticus/spice-ledger/internal/ocr"
	"github.com/Veraticus/spice-ledger/internal/sms"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.Snapshot()

	raw := r.URL.Query().Get("source")
	if raw == "" {
		writeJSON(w, http.StatusOK, toTransactionsJSON(snap.Transactions()))
		return
	}
	source, err := model.ParseSource(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toTransactionsJSON(snap.Source(source)))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, ok := s.ledger.Snapshot().Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	writeJSON(w, http.StatusOK, toTransactionJSON(t))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	asOf := s.now()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, s.engine.Config().Location)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid as_of %q, want YYYY-MM-DD", raw))
			return
		}
		// Inclusive of the whole as_of day.
		asOf = parsed.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	summary := s.engine.Aggregate(s.ledger.Snapshot().Transactions(), asOf)
	writeJSON(w, http.StatusOK, toSummaryJSON(summary))
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	month := chi.URLParam(r, "month")
	advice, err := s.engine.Advice(s.ledger.Snapshot().Transactions(), month)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out := make([]adviceJSON, 0, len(advice))
	for _, a := range advice {
		out = append(out, adviceJSON{
			Kind:    string(a.Kind),
			Subject: a.Subject,
			Message: a.Message,
			Share:   a.Share.StringFixed(4),
			Amount:  money.Format(a.Amount),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.budgets.GetBudgets(r.Context())
	if err != nil {
		common.LogError(r.Context(), s.logger, err, "failed to load budgets", nil)
		writeError(w, http.StatusInternalServerError, "failed to load budgets")
		return
	}
	progress := s.engine.ProgressAll(s.ledger.Snapshot().Transactions(), budgets)
	out := make([]budgetJSON, 0, len(progress))
	for _, p := range progress {
		out = append(out, toBudgetJSON(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePostSMS(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	msgs, err := sms.DecodeMessages(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := s.ingest.IngestMessages(r.Context(), msgs)
	if err != nil {
		s.writeIngestError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toScanJSON(summary))
}

func (s *Server) handlePostManual(w http.ResponseWriter, r *http.Request) {
	var req manualRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := money.ParsePositive(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry := ingest.ManualEntry{
		Amount:      amount,
		Description: req.Description,
		Category:    req.Category,
		Direction:   model.Direction(strings.ToLower(strings.TrimSpace(req.Direction))),
		Pending:     req.Pending,
	}
	if req.Date != "" {
		entry.Date, err = ocr.ParseDate(req.Date, s.engine.Config().Location)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	tx, err := s.ingest.AddManual(r.Context(), entry)
	if err != nil {
		s.writeIngestError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionJSON(tx))
}

func (s *Server) handlePostReceipt(w http.ResponseWriter, r *http.Request) {
	var receipt ocr.Receipt
	if err := decodeJSON(w, r, &receipt); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, tx, err := s.ingest.AddReceipt(r.Context(), receipt)
	if err != nil {
		s.writeIngestError(w, r, err)
		return
	}

	status := http.StatusCreated
	if summary.Accepted == 0 {
		status = http.StatusOK
	}
	writeJSON(w, status, receiptResponse{
		Scan:        toScanJSON(summary),
		Transaction: toTransactionJSON(tx),
		Duplicate:   summary.Duplicates > 0,
	})
}

func (s *Server) writeIngestError(w http.ResponseWriter, r *http.Request, err error) {
	var userErr *common.UserError
	switch {
	case errors.As(err, &userErr):
		writeError(w, http.StatusUnprocessableEntity, userErr.Error())
	case errors.Is(err, common.ErrDuplicateEntry):
		writeError(w, http.StatusConflict, err.Error())
	default:
		common.LogError(r.Context(), s.logger, err, "ingest failed", common.Fields{"path": r.URL.Path})
		writeError(w, http.StatusInternalServerError, "ingest failed")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
