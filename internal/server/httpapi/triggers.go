package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/lastword/internal/common"
	"github.com/dmitrijs2005/lastword/internal/logging"
	"github.com/dmitrijs2005/lastword/internal/server/models"
	"github.com/dmitrijs2005/lastword/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// TriggerHandler serves the trigger API endpoints.
type TriggerHandler struct {
	service *services.TriggerService
	logger  logging.Logger
}

// triggerDTO mirrors the stored trigger for the owner's own API. The claim
// path never uses this shape; it exposes only note and encrypted.
type triggerDTO struct {
	ID                           string `json:"id"`
	UserID                       string `json:"userId"`
	Recipients                   string `json:"recipients"`
	Note                         string `json:"note"`
	Label                        string `json:"label"`
	Subject                      string `json:"subject,omitempty"`
	Encrypted                    json.RawMessage `json:"encrypted"`
	CheckinIntervalMs            int64  `json:"checkinIntervalMs"`
	TriggerMsSinceLastCheckin    int64  `json:"triggerMsSinceLastCheckin"`
	LastIntervalTimestamp        int64  `json:"lastIntervalTimestamp"`
	LastCheckinTimestamp         int64  `json:"lastCheckinTimestamp"`
	LastTriggerTimestamp         *int64 `json:"lastTriggerTimestamp"`
	TriggerSentNotificationCount int    `json:"triggerSentNotificationCount"`
}

func toDTO(t *models.Trigger) *triggerDTO {
	return &triggerDTO{
		ID:                           t.ID,
		UserID:                       t.UserID,
		Recipients:                   t.Recipients,
		Note:                         t.Note,
		Label:                        t.Label,
		Subject:                      t.Subject,
		Encrypted:                    json.RawMessage(t.Encrypted),
		CheckinIntervalMs:            t.CheckinIntervalMs,
		TriggerMsSinceLastCheckin:    t.TriggerMsSinceLastCheckin,
		LastIntervalTimestamp:        t.LastIntervalTimestamp,
		LastCheckinTimestamp:         t.LastCheckinTimestamp,
		LastTriggerTimestamp:         t.LastTriggerTimestamp,
		TriggerSentNotificationCount: t.TriggerSentNotificationCount,
	}
}

// triggerRequest carries the user-editable fields. Encrypted is the envelope
// object itself; omitting it on update preserves the stored ciphertext.
type triggerRequest struct {
	Recipients                string          `json:"recipients"`
	Note                      string          `json:"note"`
	Label                     string          `json:"label"`
	Subject                   string          `json:"subject"`
	Encrypted                 json.RawMessage `json:"encrypted"`
	CheckinIntervalMs         int64           `json:"checkinIntervalMs"`
	TriggerMsSinceLastCheckin int64           `json:"triggerMsSinceLastCheckin"`
}

func (req *triggerRequest) toInput() *models.TriggerInput {
	return &models.TriggerInput{
		Recipients:                req.Recipients,
		Note:                      req.Note,
		Label:                     req.Label,
		Subject:                   req.Subject,
		Encrypted:                 string(req.Encrypted),
		CheckinIntervalMs:         req.CheckinIntervalMs,
		TriggerMsSinceLastCheckin: req.TriggerMsSinceLastCheckin,
	}
}

// List handles GET /api/triggers.
func (h *TriggerHandler) List(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	triggers, err := h.service.ListByUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	dtos := make([]*triggerDTO, 0, len(triggers))
	for _, t := range triggers {
		dtos = append(dtos, toDTO(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"triggers": dtos})
}

// Create handles POST /api/triggers.
func (h *TriggerHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.ErrorInvalidRequest)
		return
	}

	if user.Email != "" {
		if err := h.service.EnsureUser(r.Context(), user); err != nil {
			h.logger.Error(r.Context(), "failed to upsert user", "user_id", user.ID, "error", err)
		}
	}

	trigger, err := h.service.Create(r.Context(), user.ID, req.toInput())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"trigger": toDTO(trigger)})
}

// Update handles PUT /api/triggers/{triggerID}.
func (h *TriggerHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	triggerID := chi.URLParam(r, "triggerID")

	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.ErrorInvalidRequest)
		return
	}

	if err := h.service.Update(r.Context(), user.ID, triggerID, req.toInput()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/triggers/{triggerID}.
func (h *TriggerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	triggerID := chi.URLParam(r, "triggerID")

	if err := h.service.Delete(r.Context(), user.ID, triggerID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Claim handles GET /api/triggers/claim/{triggerID}. The response shape is
// identical to the mail attachment so either can be fed to the claim tool.
func (h *TriggerHandler) Claim(w http.ResponseWriter, r *http.Request) {
	payload, err := h.service.Claim(r.Context(), chi.URLParam(r, "triggerID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

const checkinSuccessPage = `<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Check-in Successful</title>
</head>
<body>
  <h1>You have checked in successfully.</h1>
  <p><a href="/">Go to the home page</a></p>
</body>
</html>
`

// Checkin handles POST /api/triggers/checkin/{token}.
func (h *TriggerHandler) Checkin(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RedeemCheckinToken(r.Context(), chi.URLParam(r, "token")); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(checkinSuccessPage))
}
