package http

import (
	"net/http"
	"strings"
	"time"

	"fatture/internal/core"
)

type configRowView struct {
	ID          string
	Name        string
	FromAddress string
	ReplyTo     string
	Subject     string
	Body        string
	Cadence     string
	Active      bool
	UpdatedAt   string
}

// handleConfigs renders the reminder configuration page.
func (s *Server) handleConfigs(w http.ResponseWriter, r *http.Request, p core.Principal) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	configs, err := s.backend.ListEmailConfigs(r.Context(), p)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list email configs", "error", err)
	}

	rows := make([]configRowView, 0, len(configs))
	for _, c := range configs {
		rows = append(rows, configViewFrom(c))
	}

	data := struct {
		Email    string
		Configs  []configRowView
		Cadences []string
		LoadErr  bool
	}{
		Email:    p.Email,
		Configs:  rows,
		Cadences: []string{string(core.CadenceOnce), string(core.CadenceDaily), string(core.CadenceWeekly), string(core.CadenceMonthly)},
		LoadErr:  err != nil,
	}

	if err := s.templates.ExecuteTemplate(w, "configs.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Configs template execution failed", "error", err, "template", "configs.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func configViewFrom(c core.EmailConfig) configRowView {
	return configRowView{
		ID:          c.ID,
		Name:        c.Name,
		FromAddress: c.FromAddress,
		ReplyTo:     c.ReplyTo,
		Subject:     c.Subject,
		Body:        c.Body,
		Cadence:     string(c.Cadence),
		Active:      c.Active,
		UpdatedAt:   c.UpdatedAt.Format(time.DateOnly),
	}
}

// handleSaveConfig creates or updates a reminder configuration. An "id"
// field selects update, an empty one selects create.
func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request, p core.Principal) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	cfg := ParseConfigForm(r.Form)
	if err := cfg.Validate(); err != nil {
		UnprocessableEntityError("Configurazione non valida: " + err.Error()).Write(w)
		return
	}

	id := strings.TrimSpace(r.Form.Get("id"))
	var (
		saved core.EmailConfig
		err   error
	)
	if id == "" {
		saved, err = s.backend.CreateEmailConfig(r.Context(), p, cfg)
	} else {
		cfg.ID = id
		saved, err = s.backend.UpdateEmailConfig(r.Context(), p, cfg)
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to save email config",
			"error", err, "config_id", id, "config_name", cfg.Name)
		InternalServerError("Errore nel salvataggio").Write(w)
		return
	}
	s.logger.InfoContext(r.Context(), "Email config saved",
		"config_id", saved.ID, "config_name", saved.Name, "cadence", string(saved.Cadence))

	if r.Header.Get("HX-Request") == "true" {
		NewHTMXResponse().
			TriggerConfigSaved(saved.ID).
			TriggerSuccessNotification("Configurazione salvata").
			Header("HX-Redirect", "/configs").
			Write(w)
		return
	}
	http.Redirect(w, r, "/configs", http.StatusSeeOther)
}

// handleDeleteConfig removes a reminder configuration.
func (s *Server) handleDeleteConfig(w http.ResponseWriter, r *http.Request, p core.Principal) {
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
		BadRequestError("Identificativo configurazione mancante").Write(w)
		return
	}

	if err := s.backend.DeleteEmailConfig(r.Context(), p, id); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to delete email config",
			"error", err, "config_id", id)
		InternalServerError("Errore nella cancellazione").Write(w)
		return
	}
	s.logger.InfoContext(r.Context(), "Email config deleted", "config_id", id)

	if r.Header.Get("HX-Request") == "true" {
		NewHTMXResponse().
			TriggerSuccessNotification("Configurazione eliminata").
			Header("HX-Redirect", "/configs").
			Write(w)
		return
	}
	http.Redirect(w, r, "/configs", http.StatusSeeOther)
}
