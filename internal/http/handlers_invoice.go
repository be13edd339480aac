package http

import (
	"html/template"
	"net/http"
	"strings"

	"fatture/internal/core"
)

// handleCreateInvoice creates an invoice on the platform, then refetches
// the current batch so every partial reflects the write.
func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request, p core.Principal) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	inv, err := ParseInvoiceForm(r.Form)
	if err != nil {
		UnprocessableEntityError("Dati non validi: " + err.Error()).Write(w)
		return
	}
	if err := inv.Validate(); err != nil {
		UnprocessableEntityError("Dati non validi: " + err.Error()).Write(w)
		return
	}

	created, err := s.backend.Create(r.Context(), p, inv)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to create invoice",
			"error", err,
			"invoice_number", inv.Number,
			"amount_cents", inv.Amount.Cents)
		InternalServerError("Errore nel salvataggio").Write(w)
		return
	}
	s.countInvoiceWrite()
	s.logger.InfoContext(r.Context(), "Invoice created",
		"invoice_id", created.ID,
		"invoice_number", created.Number,
		"amount_cents", created.Amount.Cents,
		"category", created.Category)

	snap := s.controller(p).Refresh(r.Context())

	NewHTMXResponse().
		TriggerInvoiceCreated(created.ID).
		TriggerStatsRefreshed(snap.Generation).
		TriggerFormReset().
		TriggerSuccessNotification("Fattura " + created.Number + " registrata").
		BodyHTML(`<div class="success">Fattura registrata: ` +
			template.HTMLEscapeString(created.Number) + ` - ` +
			template.HTMLEscapeString(created.Counterpart) + ` (` +
			formatEuros(created.Amount.Cents) + `)</div>`).
		Write(w)
}

// handleUpdateInvoice updates an existing invoice.
func (s *Server) handleUpdateInvoice(w http.ResponseWriter, r *http.Request, p core.Principal) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id := strings.TrimSpace(r.Form.Get("id"))
	if id == "" {
		BadRequestError("Identificativo fattura mancante").Write(w)
		return
	}

	inv, err := ParseInvoiceForm(r.Form)
	if err != nil {
		UnprocessableEntityError("Dati non validi: " + err.Error()).Write(w)
		return
	}
	inv.ID = id
	if err := inv.Validate(); err != nil {
		UnprocessableEntityError("Dati non validi: " + err.Error()).Write(w)
		return
	}

	updated, err := s.backend.Update(r.Context(), p, inv)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to update invoice",
			"error", err, "invoice_id", id)
		InternalServerError("Errore nell'aggiornamento").Write(w)
		return
	}
	s.countInvoiceWrite()
	s.logger.InfoContext(r.Context(), "Invoice updated",
		"invoice_id", updated.ID, "invoice_number", updated.Number)

	snap := s.controller(p).Refresh(r.Context())

	NewHTMXResponse().
		TriggerInvoiceUpdated(updated.ID).
		TriggerStatsRefreshed(snap.Generation).
		TriggerSuccessNotification("Fattura " + updated.Number + " aggiornata").
		BodyHTML(`<div class="success">Fattura aggiornata: ` +
			template.HTMLEscapeString(updated.Number) + `</div>`).
		Write(w)
}

// handleDeleteInvoice removes an invoice.
func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request, p core.Principal) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id := strings.TrimSpace(r.Form.Get("id"))
	if id == "" {
		id = strings.TrimSpace(r.URL.Query().Get("id"))
	}
	if id == "" {
		BadRequestError("Identificativo fattura mancante").Write(w)
		return
	}

	if err := s.backend.Delete(r.Context(), p, id); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to delete invoice",
			"error", err, "invoice_id", id)
		InternalServerError("Errore nella cancellazione").Write(w)
		return
	}
	s.countInvoiceWrite()
	s.logger.InfoContext(r.Context(), "Invoice deleted", "invoice_id", id)

	snap := s.controller(p).Refresh(r.Context())

	NewHTMXResponse().
		TriggerInvoiceDeleted(id).
		TriggerStatsRefreshed(snap.Generation).
		TriggerSuccessNotification("Fattura eliminata").
		BodyHTML(`<div class="success">Fattura eliminata</div>`).
		Write(w)
}
