// Package monitor implements the periodic control loop of the service: it
// reconciles check-in timestamps across nodes, issues check-in reminders and
// releases overdue triggers to their recipients.
//
// There is no persisted state machine; every sweep recomputes each trigger's
// state from its timestamps, so the loop is idempotent and tolerates missed
// runs. Both the due check and the overdue check run in the same pass, from
// the same snapshot of triggers.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lastword/internal/logging"
	"github.com/dmitrijs2005/lastword/internal/server/models"
	"github.com/dmitrijs2005/lastword/internal/server/notify"
	"github.com/dmitrijs2005/lastword/internal/server/objectstore"
	"github.com/dmitrijs2005/lastword/internal/server/services"
)

const (
	// TriggerNotificationIntervalMs is the cooldown between release
	// notifications for one overdue trigger (7 days).
	TriggerNotificationIntervalMs int64 = 7 * 24 * 60 * 60 * 1000

	// MaxTriggerNotifications caps how many release notifications one trigger
	// may ever send. Past the cap the trigger stays claimable but silent until
	// the owner checks in again.
	MaxTriggerNotifications = 10
)

// Config holds the monitor's timing knobs and the public base URL used in
// notification links.
type Config struct {
	SweepInterval      time.Duration
	CallTimeout        time.Duration
	BaseURL            string
	DisableCheckinSync bool
}

// Monitor drives the periodic sweep.
type Monitor struct {
	service *services.TriggerService
	store   objectstore.Store
	mailer  notify.Mailer
	logger  logging.Logger
	cfg     Config

	now func() time.Time
}

// New wires a Monitor. store may be nil when no shared bucket is configured;
// reconciliation is then skipped entirely.
func New(service *services.TriggerService, store objectstore.Store, mailer notify.Mailer, logger logging.Logger, cfg Config) *Monitor {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Hour
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	return &Monitor{
		service: service,
		store:   store,
		mailer:  mailer,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Run executes one sweep immediately, then sweeps on the configured cadence
// until ctx is cancelled. A sweep always runs to completion before the next
// tick is considered, so sweeps never overlap; an overrunning sweep delays
// the next one.
func (m *Monitor) Run(ctx context.Context) {
	if err := m.Sweep(ctx); err != nil {
		m.logger.Error(ctx, "sweep failed", "error", err)
	}

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Sweep(ctx); err != nil {
				m.logger.Error(ctx, "sweep failed", "error", err)
			}
		}
	}
}

func isCheckinDue(t *models.Trigger, now int64) bool {
	return now-t.LastIntervalTimestamp >= t.CheckinIntervalMs
}

func shouldNotifyRelease(t *models.Trigger, now int64) bool {
	var lastTrigger int64
	if t.LastTriggerTimestamp != nil {
		lastTrigger = *t.LastTriggerTimestamp
	}
	return services.Claimable(t, now) &&
		now-lastTrigger >= TriggerNotificationIntervalMs &&
		t.TriggerSentNotificationCount < MaxTriggerNotifications
}

// Sweep performs one monitoring pass: reconcile check-ins, fetch all triggers
// once, process the due set, then the overdue set from the same snapshot. A
// check-in redeemed concurrently with a sweep is picked up on the next one.
func (m *Monitor) Sweep(ctx context.Context) error {
	m.reconcileCheckins(ctx)

	triggers, err := m.service.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("fetch triggers: %w", err)
	}

	now := m.now().UnixMilli()
	var due, released int

	for _, t := range triggers {
		if !isCheckinDue(t, now) {
			continue
		}
		if err := m.processDue(ctx, t, now); err != nil {
			m.logger.Error(ctx, "checkin reminder failed", "trigger_id", t.ID, "error", err)
			continue
		}
		due++
	}

	for _, t := range triggers {
		if !shouldNotifyRelease(t, now) {
			continue
		}
		if err := m.processRelease(ctx, t, now); err != nil {
			m.logger.Error(ctx, "trigger release failed", "trigger_id", t.ID, "error", err)
			continue
		}
		released++
	}

	m.logger.Info(ctx, "sweep finished", "triggers", len(triggers), "reminders", due, "releases", released)
	return nil
}

// processDue issues a fresh token, mails a reminder to the owner and advances
// the reminder clock. The token expires one check-in interval from now.
func (m *Monitor) processDue(ctx context.Context, t *models.Trigger, now int64) error {
	token, err := m.service.IssueCheckinToken(ctx, t.ID, now+t.CheckinIntervalMs)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	ownerEmail, err := m.service.OwnerEmail(ctx, t.UserID)
	if err != nil {
		return fmt.Errorf("resolve owner: %w", err)
	}

	sinceLast := time.Duration(now-t.LastIntervalTimestamp) * time.Millisecond
	checkinURL := fmt.Sprintf("%s/api/triggers/checkin/%s", m.cfg.BaseURL, token.ID)
	msg := notify.CheckinReminder(ownerEmail, t, sinceLast, checkinURL)

	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}

	return m.service.AdvanceIntervalTimestamp(ctx, t.ID, now)
}

// processRelease mails the claim link and payload to every recipient, then
// records the notification with the bumped count in one write. If no
// recipient could be reached the state is left untouched so the next sweep
// retries.
func (m *Monitor) processRelease(ctx context.Context, t *models.Trigger, now int64) error {
	payload, err := services.PayloadFor(t)
	if err != nil {
		return err
	}

	claimURL := fmt.Sprintf("%s/triggers/claim/%s", m.cfg.BaseURL, t.ID)

	var delivered int
	for _, recipient := range t.RecipientList() {
		msg := notify.TriggerRelease(recipient, t, claimURL, payload)
		if err := m.send(ctx, msg); err != nil {
			m.logger.Error(ctx, "release notification failed", "trigger_id", t.ID, "recipient", recipient, "error", err)
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return fmt.Errorf("no release notification delivered")
	}

	return m.service.RecordRelease(ctx, t.ID, now, t.TriggerSentNotificationCount+1)
}

// send bounds one mail delivery with the per-call timeout so an unreachable
// relay cannot stall the whole sweep.
func (m *Monitor) send(ctx context.Context, msg *notify.Message) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.CallTimeout)
	defer cancel()
	return m.mailer.SendMail(ctx, msg)
}
