package wayfinder

import (
	"context"
	"fmt"
	"time"

	"github.com/matijazezelj/wayfind/internal/alert"
	"github.com/matijazezelj/wayfind/internal/metrics"
	"github.com/matijazezelj/wayfind/internal/navigation"
	"github.com/matijazezelj/wayfind/pkg/models"
)

// HazardRequest declares a blocked connection. A zero TTL uses the
// configured default.
type HazardRequest struct {
	From   string
	To     string
	Reason string
	TTL    time.Duration
}

// DeclareHazard blocks an existing connection for every later query.
func (s *Service) DeclareHazard(ctx context.Context, req HazardRequest) (*models.Hazard, error) {
	b, err := s.Building(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range []string{req.From, req.To} {
		if !b.Has(id) {
			return nil, fmt.Errorf("%w: %q", navigation.ErrUnknownNode, id)
		}
	}
	edge, ok := b.Edge(req.From, req.To)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEdgeNotFound, models.EdgeKey(req.From, req.To))
	}

	now := s.now().UTC()
	h := models.Hazard{From: req.From, To: req.To, Reason: req.Reason, CreatedAt: now}
	ttl := req.TTL
	if ttl == 0 {
		ttl = s.cfg.DefaultTTL
	}
	if ttl > 0 {
		exp := now.Add(ttl)
		h.ExpiresAt = &exp
	}

	id, err := s.store.AddHazard(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("storing hazard: %w", err)
	}
	h.ID = id
	s.logger.Info("hazard declared", "id", id, "edge", edge.Key(), "reason", req.Reason)
	metrics.Default().IncHazardTotal("declared")
	s.refreshActive(ctx)

	event := hazardEvent(alert.EventHazardDeclared, alert.SeverityWarning, edge, h)
	event.Message = fmt.Sprintf("Connection %s blocked", edge.Key())
	if h.Reason != "" {
		event.Message += ": " + h.Reason
	}
	if impact, err := s.Impact(ctx, false); err == nil && len(impact.CutOff) > 0 {
		event.Severity = alert.SeverityCritical
		event.Impact = &alert.Impact{CutOffCount: len(impact.CutOff), CutOff: impact.CutOff}
	}
	s.send(ctx, event)

	return &h, nil
}

// ClearHazard removes one hazard by ID.
func (s *Service) ClearHazard(ctx context.Context, id int64) error {
	hazards, err := s.store.ListHazards(ctx, time.Time{})
	if err != nil {
		return fmt.Errorf("listing hazards: %w", err)
	}
	var found *models.Hazard
	for i := range hazards {
		if hazards[i].ID == id {
			found = &hazards[i]
			break
		}
	}

	ok, err := s.store.DeleteHazard(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting hazard: %w", err)
	}
	if !ok || found == nil {
		return fmt.Errorf("%w: %d", ErrHazardNotFound, id)
	}

	s.logger.Info("hazard cleared", "id", id)
	metrics.Default().IncHazardTotal("cleared")
	s.refreshActive(ctx)
	s.notifyCleared(ctx, *found, "cleared")
	return nil
}

// ClearHazards removes every hazard and returns how many there were.
func (s *Service) ClearHazards(ctx context.Context) (int, error) {
	n, err := s.store.ClearHazards(ctx)
	if err != nil {
		return 0, fmt.Errorf("clearing hazards: %w", err)
	}
	if n == 0 {
		return 0, nil
	}

	s.logger.Info("all hazards cleared", "count", n)
	metrics.Default().IncHazardTotal("cleared")
	s.refreshActive(ctx)
	s.send(ctx, alert.Event{
		EventType: alert.EventHazardCleared,
		Severity:  alert.SeverityInfo,
		Place:     alert.Place{ID: "*", Type: "building"},
		Message:   fmt.Sprintf("%d hazards cleared", n),
	})
	return n, nil
}

// ActiveHazards lists the hazards currently in force.
func (s *Service) ActiveHazards(ctx context.Context) ([]models.Hazard, error) {
	return s.store.ListHazards(ctx, s.now())
}

// ExpireHazards deletes hazards past their expiry and reports them.
func (s *Service) ExpireHazards(ctx context.Context) ([]models.Hazard, error) {
	expired, err := s.store.DeleteExpiredHazards(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("deleting expired hazards: %w", err)
	}
	if len(expired) == 0 {
		return nil, nil
	}
	for _, h := range expired {
		s.logger.Info("hazard expired", "id", h.ID, "from", h.From, "to", h.To)
		metrics.Default().IncHazardTotal("expired")
		s.notifyCleared(ctx, h, "expired")
	}
	s.refreshActive(ctx)
	return expired, nil
}

func (s *Service) notifyCleared(ctx context.Context, h models.Hazard, how string) {
	edge := models.Edge{From: h.From, To: h.To}
	if b, err := s.Building(ctx); err == nil {
		if e, ok := b.Edge(h.From, h.To); ok {
			edge = e
		}
	}
	event := hazardEvent(alert.EventHazardCleared, alert.SeverityInfo, edge, h)
	event.Message = fmt.Sprintf("Connection %s reopened (%s)", edge.Key(), how)
	s.send(ctx, event)
}

func (s *Service) refreshActive(ctx context.Context) {
	active, err := s.store.ListHazards(ctx, s.now())
	if err != nil {
		s.logger.Warn("counting active hazards", "error", err)
		return
	}
	metrics.Default().SetActiveHazards(len(active))
}

func hazardEvent(eventType, severity string, edge models.Edge, h models.Hazard) alert.Event {
	ev := alert.Event{
		EventType: eventType,
		Severity:  severity,
		Place:     alert.Place{ID: edge.Key(), Type: string(edge.Type)},
		Hazard: &alert.Hazard{
			ID:     h.ID,
			From:   h.From,
			To:     h.To,
			Reason: h.Reason,
		},
	}
	if h.ExpiresAt != nil {
		ev.Hazard.ExpiresAt = h.ExpiresAt.Format(time.RFC3339)
	}
	return ev
}
