package monitor

import (
	"context"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/lastword/internal/server/services"
)

// reconcileCheckins converges the per-trigger "last check-in" timestamps
// between this node's database and the shared object store. The rule is
// keep-the-maximum: whichever side is behind adopts the newer value, so any
// number of nodes converge regardless of write order. Only the check-in
// timestamp is reconciled; all other trigger fields are edited on the primary
// API nodes and never cross-synced.
//
// If the object store is unreachable the whole pass is skipped for this sweep
// and local state is used as-is. Availability over consistency.
func (m *Monitor) reconcileCheckins(ctx context.Context) {
	if m.cfg.DisableCheckinSync {
		m.logger.Warn(ctx, "checkin sync disabled")
		return
	}
	if m.store == nil {
		m.logger.Debug(ctx, "skip checkin sync: no object store configured")
		return
	}

	remote, err := m.downloadCheckinTimestamps(ctx)
	if err != nil {
		m.logger.Warn(ctx, "skip checkin sync: object store unreachable", "error", err)
		return
	}

	triggers, err := m.service.GetAll(ctx)
	if err != nil {
		m.logger.Error(ctx, "checkin sync: fetch triggers failed", "error", err)
		return
	}

	for _, t := range triggers {
		remoteTs, ok := remote[t.ID]
		switch {
		case !ok:
			// First writer wins the bootstrap for this trigger.
			m.service.PublishCheckin(ctx, t.ID, t.LastCheckinTimestamp)
		case remoteTs > t.LastCheckinTimestamp:
			if err := m.service.RecordCheckin(ctx, t.ID, remoteTs); err != nil {
				m.logger.Error(ctx, "checkin sync: adopt remote failed", "trigger_id", t.ID, "error", err)
			}
		case remoteTs < t.LastCheckinTimestamp:
			m.service.PublishCheckin(ctx, t.ID, t.LastCheckinTimestamp)
		}
	}
}

// downloadCheckinTimestamps lists every checkin/<id>.txt object and parses
// the decimal unix-ms body. Unparseable or misnamed objects are skipped.
func (m *Monitor) downloadCheckinTimestamps(ctx context.Context) (map[string]int64, error) {
	listCtx, cancel := context.WithTimeout(ctx, m.cfg.CallTimeout)
	defer cancel()

	keys, err := m.store.List(listCtx, services.CheckinKeyPrefix)
	if err != nil {
		return nil, err
	}

	checkins := make(map[string]int64, len(keys))
	for _, key := range keys {
		triggerID := strings.TrimSuffix(strings.TrimPrefix(key, services.CheckinKeyPrefix), ".txt")
		if triggerID == "" || !strings.HasSuffix(key, ".txt") {
			continue
		}

		body, err := m.fetchObject(ctx, key)
		if err != nil {
			m.logger.Warn(ctx, "checkin sync: fetch failed", "key", key, "error", err)
			continue
		}

		ts, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
		if err != nil {
			m.logger.Warn(ctx, "checkin sync: unparseable timestamp", "key", key)
			continue
		}
		checkins[triggerID] = ts
	}

	return checkins, nil
}

func (m *Monitor) fetchObject(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.CallTimeout)
	defer cancel()
	return m.store.Get(ctx, key)
}
