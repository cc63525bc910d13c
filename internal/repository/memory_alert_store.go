package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"MarketWatch/internal/domain/models"
	domrepo "MarketWatch/internal/domain/repository"

	"github.com/google/uuid"
)

// MemoryAlertStore keeps alerts in process memory behind a mutex. The
// Transition compare-and-swap is the synchronization point the evaluator
// relies on for at-most-once notification.
type MemoryAlertStore struct {
	mu          sync.RWMutex
	alerts      map[string]*models.Alert
	maxPerOwner int
	now         func() time.Time
}

// NewMemoryAlertStore creates an empty store. maxPerOwner of 0 disables
// the per-owner cap.
func NewMemoryAlertStore(maxPerOwner int) *MemoryAlertStore {
	return &MemoryAlertStore{
		alerts:      make(map[string]*models.Alert),
		maxPerOwner: maxPerOwner,
		now:         time.Now,
	}
}

var _ domrepo.AlertStore = (*MemoryAlertStore)(nil)

// Create validates the owner cap, assigns an ID and stores the alert in
// Active state.
func (s *MemoryAlertStore) Create(ctx context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxPerOwner > 0 {
		// only live alerts count; triggered and cancelled ones free their slot
		count := 0
		for _, a := range s.alerts {
			if a.OwnerID == alert.OwnerID && a.Status == models.StatusActive {
				count++
			}
		}
		if count >= s.maxPerOwner {
			return fmt.Errorf("%w: %d active alerts", models.ErrOwnerLimitReached, count)
		}
	}

	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.Status == "" {
		alert.Status = models.StatusActive
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = s.now()
	}

	cp := *alert
	s.alerts[alert.ID] = &cp
	return nil
}

// Get returns a copy of the alert.
func (s *MemoryAlertStore) Get(ctx context.Context, id string) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.alerts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrAlertNotFound, id)
	}
	cp := *a
	return &cp, nil
}

// ListActive returns all alerts in Active state, ordered by creation time.
func (s *MemoryAlertStore) ListActive(ctx context.Context) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Alert, 0)
	for _, a := range s.alerts {
		if a.Status == models.StatusActive {
			cp := *a
			out = append(out, &cp)
		}
	}
	sortAlerts(out)
	return out, nil
}

// ListByOwner returns the owner's alerts in every state.
func (s *MemoryAlertStore) ListByOwner(ctx context.Context, ownerID string) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Alert, 0)
	for _, a := range s.alerts {
		if a.OwnerID == ownerID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sortAlerts(out)
	return out, nil
}

// Transition atomically moves the alert from one status to another. It
// returns false when the alert is no longer in the expected state, which
// is how concurrent evaluators lose the race cleanly.
func (s *MemoryAlertStore) Transition(ctx context.Context, id string, from, to models.AlertStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.alerts[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", models.ErrAlertNotFound, id)
	}
	if a.Status != from {
		return false, nil
	}

	a.Status = to
	if to == models.StatusTriggered {
		now := s.now()
		a.TriggeredAt = &now
	}
	return true, nil
}

// Delete removes the alert entirely.
func (s *MemoryAlertStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.alerts[id]; !ok {
		return fmt.Errorf("%w: %s", models.ErrAlertNotFound, id)
	}
	delete(s.alerts, id)
	return nil
}

func sortAlerts(alerts []*models.Alert) {
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].CreatedAt.Equal(alerts[j].CreatedAt) {
			return alerts[i].ID < alerts[j].ID
		}
		return alerts[i].CreatedAt.Before(alerts[j].CreatedAt)
	})
}
