package http

import (
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"fatture/internal/core"
	"fatture/internal/stats"
)

// handleDashboard renders the dashboard page. The five dataset sections
// load themselves via HTMX from a snapshot fetched here, so the first
// page view triggers exactly one batch.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, p core.Principal) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", "path", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	ctrl := s.controller(p)
	snap := ctrl.Current()
	if snap.Generation == 0 {
		snap = ctrl.Refresh(r.Context())
	}

	data := struct {
		Email      string
		Demo       bool
		Filters    filterFormData
		Generation uint64
		UpdatedAt  string
		HasError   bool
	}{
		Email:      p.Email,
		Demo:       s.auth == nil,
		Filters:    filterFormFromState(snap),
		Generation: snap.Generation,
		UpdatedAt:  formatUpdatedAt(snap.UpdatedAt),
		HasError:   snap.Err != nil,
	}

	if err := s.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Dashboard template execution failed", "error", err, "template", "dashboard.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// filterFormData feeds the filter form template with the current state.
type filterFormData struct {
	Preset     string
	StartDate  string
	EndDate    string
	Categories []filterOption
	Types      []filterOption
	Statuses   []filterOption
	MinAmount  string
	MaxAmount  string
}

type filterOption struct {
	Value    string
	Selected bool
}

func filterFormFromState(snap stats.Snapshot) filterFormData {
	f := snap.Filters
	data := filterFormData{
		Preset: string(f.DateRange.Preset),
	}
	if f.DateRange.StartDate != nil {
		data.StartDate = f.DateRange.StartDate.Format("2006-01-02")
	}
	if f.DateRange.EndDate != nil {
		data.EndDate = f.DateRange.EndDate.Format("2006-01-02")
	}
	if f.AmountRange.MinCents != nil {
		data.MinAmount = strconv.FormatFloat(float64(*f.AmountRange.MinCents)/100, 'f', 2, 64)
	}
	if f.AmountRange.MaxCents != nil {
		data.MaxAmount = strconv.FormatFloat(float64(*f.AmountRange.MaxCents)/100, 'f', 2, 64)
	}

	selected := func(set []string, v string) bool {
		for _, x := range set {
			if x == v {
				return true
			}
		}
		return false
	}

	// Category options come from the current batch so the select always
	// lists what the data actually contains, plus any active selection.
	seen := map[string]bool{}
	for _, c := range snap.Data.Categories {
		seen[c.Category] = true
		data.Categories = append(data.Categories, filterOption{Value: c.Category, Selected: selected(f.Categories, c.Category)})
	}
	for _, c := range f.Categories {
		if !seen[c] {
			data.Categories = append(data.Categories, filterOption{Value: c, Selected: true})
		}
	}

	for _, t := range []core.InvoiceType{core.TypeIssued, core.TypeReceived, core.TypeCreditNote} {
		data.Types = append(data.Types, filterOption{Value: string(t), Selected: selected(f.InvoiceTypes, string(t))})
	}
	for _, st := range []core.InvoiceStatus{core.StatusDraft, core.StatusSent, core.StatusPaid, core.StatusOverdue, core.StatusCancelled} {
		data.Statuses = append(data.Statuses, filterOption{Value: string(st), Selected: selected(f.Status, string(st))})
	}
	return data
}

func formatUpdatedAt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("15:04:05")
}

// handleSetFilters replaces the filter state wholesale and fetches a
// fresh batch. The response carries the stats:refreshed trigger so every
// partial reloads from the new snapshot.
func (s *Server) handleSetFilters(w http.ResponseWriter, r *http.Request, p core.Principal) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	filters, err := ParseFilterForm(r.Form)
	if err != nil {
		UnprocessableEntityError("Filtri non validi: " + err.Error()).Write(w)
		return
	}

	snap := s.controller(p).SetFilters(r.Context(), filters)
	s.writeFilterResult(w, r, snap)
}

// handleResetFilters restores the default filter state.
func (s *Server) handleResetFilters(w http.ResponseWriter, r *http.Request, p core.Principal) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	snap := s.controller(p).ResetFilters(r.Context())
	s.writeFilterResult(w, r, snap)
}

// handleRefresh refetches the current filter state.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request, p core.Principal) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	snap := s.controller(p).Refresh(r.Context())
	s.writeFilterResult(w, r, snap)
}

func (s *Server) writeFilterResult(w http.ResponseWriter, r *http.Request, snap stats.Snapshot) {
	builder := NewHTMXResponse().TriggerStatsRefreshed(snap.Generation)
	if snap.Err != nil {
		s.logger.ErrorContext(r.Context(), "Dataset fetch failed", "error", snap.Err)
		builder.
			TriggerErrorNotification("Aggiornamento non riuscito, dati non aggiornati").
			BodyHTML(`<span class="filter-status error">Dati non aggiornati` + staleSuffix(snap) + `</span>`).
			Write(w)
		return
	}
	builder.
		BodyHTML(`<span class="filter-status">Aggiornato alle ` + formatUpdatedAt(snap.UpdatedAt) + `</span>`).
		Write(w)
}

func staleSuffix(snap stats.Snapshot) string {
	if snap.UpdatedAt.IsZero() {
		return ""
	}
	return ` (ultimo aggiornamento ` + formatUpdatedAt(snap.UpdatedAt) + `)`
}

func (s *Server) handleOverviewPartial(w http.ResponseWriter, r *http.Request, p core.Principal) {
	s.renderPartial(w, r, p, "overview")
}

func (s *Server) handleTrendsPartial(w http.ResponseWriter, r *http.Request, p core.Principal) {
	s.renderPartial(w, r, p, "trends")
}

func (s *Server) handleCategoriesPartial(w http.ResponseWriter, r *http.Request, p core.Principal) {
	s.renderPartial(w, r, p, "categories")
}

func (s *Server) handleHierarchyPartial(w http.ResponseWriter, r *http.Request, p core.Principal) {
	s.renderPartial(w, r, p, "hierarchy")
}

func (s *Server) handleInvoicesPartial(w http.ResponseWriter, r *http.Request, p core.Principal) {
	s.renderPartial(w, r, p, "invoices")
}

// renderPartial renders one dataset section from the session's current
// snapshot. Rendered HTML is cached per user and generation, so reloading
// all five sections after a refresh renders each once.
func (s *Server) renderPartial(w http.ResponseWriter, r *http.Request, p core.Principal, name string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	ctrl := s.controller(p)
	snap := ctrl.Current()
	if snap.Generation == 0 {
		snap = ctrl.Refresh(r.Context())
	}

	key := p.UserID + "|" + strconv.FormatUint(snap.Generation, 10) + "|" + name
	if html, found := s.partialCache.Get(key); found {
		atomic.AddInt64(&s.appMetrics.partialHits, 1)
		_, _ = w.Write([]byte(html))
		return
	}
	atomic.AddInt64(&s.appMetrics.partialMisses, 1)

	html, err := s.renderPartialHTML(name, snap)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Partial rendering failed", "partial", name, "error", err)
		_, _ = fmt.Fprintf(w, `<div class="placeholder">Errore caricando la sezione</div>`)
		return
	}

	// Failed batches render the stale snapshot and must not be cached,
	// the next attempt should hit the source again.
	if snap.Err == nil {
		s.partialCache.Set(key, html)
	}
	_, _ = w.Write([]byte(html))
}
