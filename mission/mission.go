// Package mission implements the per-waypoint state machine and the
// mission-terminal-status derivation that drives it.
package mission

import (
	"context"

	"github.com/motocabz/dispatch-core/domain"
	"github.com/motocabz/dispatch-core/events"
)

// Store is the persistence surface this state machine needs.
type Store interface {
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)

	// TransitionWaypoint applies the given waypoint mutation within one DB
	// transaction serialized on the owning Order row.
	TransitionWaypoint(ctx context.Context, orderID string, sequence int, mutate func(*domain.WaypointSummaryItem) error) error

	AppendOrderStatusLog(ctx context.Context, orderID, status string, currentLocation *domain.Coordinates) error

	// FinalizeMission sets the order's terminal fields once every waypoint
	// has reached a terminal state ("Mission terminal states").
	FinalizeMission(ctx context.Context, orderID, missionStatus string, finalRemuneration int64, failureReasonCode *string) error
}

// Publisher is the narrow slice of *eventlog.Log this package needs,
// narrowed to an interface so tests can substitute a fake.
type Publisher interface {
	Append(ctx context.Context, ev events.BaseEvent) (string, error)
}

// StateMachine implements the HTTP-handler-invoked transitions.
type StateMachine struct {
	store Store
	log   Publisher
	rng   domain.Rng
	clock domain.Clock
}

func NewStateMachine(store Store, log Publisher, rng domain.Rng, clock domain.Clock) *StateMachine {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &StateMachine{store: store, log: log, rng: rng, clock: clock}
}

// ReportArrival implements `pending -> arrived`.
func (m *StateMachine) ReportArrival(ctx context.Context, orderID string, sequence int, driverID string) error {
	order, err := m.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return domain.ErrNotFoundf("order", orderID)
	}
	if order.DriverID == nil || *order.DriverID != driverID {
		return domain.ErrForbiddenf("driver %s is not assigned to order %s", driverID, orderID)
	}
	if err := requirePredecessorTerminal(order, sequence); err != nil {
		return err
	}

	var wp domain.WaypointSummaryItem
	err = m.store.TransitionWaypoint(ctx, orderID, sequence, func(w *domain.WaypointSummaryItem) error {
		if w.Status != "pending" {
			return domain.ErrWaypointOutOfOrderf(orderID, sequence)
		}
		w.Status = "arrived"
		wp = *w
		return nil
	})
	if err != nil {
		return err
	}

	logStatus := "AT_DELIVERY_LOCATION"
	if wp.Type == "pickup" {
		logStatus = "AT_PICKUP"
	}
	return m.store.AppendOrderStatusLog(ctx, orderID, logStatus, &wp.Coordinates)
}

// BeginProcessing implements `arrived -> processing`.
func (m *StateMachine) BeginProcessing(ctx context.Context, orderID string, sequence int, driverID string) error {
	order, err := m.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return domain.ErrNotFoundf("order", orderID)
	}
	if order.DriverID == nil || *order.DriverID != driverID {
		return domain.ErrForbiddenf("driver %s is not assigned to order %s", driverID, orderID)
	}

	return m.store.TransitionWaypoint(ctx, orderID, sequence, func(w *domain.WaypointSummaryItem) error {
		if w.Status != "arrived" {
			return domain.ErrWaypointOutOfOrderf(orderID, sequence)
		}
		w.Status = "processing"
		return nil
	})
}

// CompleteParams carries the optional artifacts required to complete a
// waypoint.
type CompleteParams struct {
	ConfirmationCode string
	PhotoURLs        []string
}

// Complete implements `processing -> completed`.
func (m *StateMachine) Complete(ctx context.Context, orderID string, sequence int, driverID string, params CompleteParams) error {
	order, err := m.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return domain.ErrNotFoundf("order", orderID)
	}
	if order.DriverID == nil || *order.DriverID != driverID {
		return domain.ErrForbiddenf("driver %s is not assigned to order %s", driverID, orderID)
	}

	now := m.clock.Now()
	var hasNextDelivery bool
	err = m.store.TransitionWaypoint(ctx, orderID, sequence, func(w *domain.WaypointSummaryItem) error {
		if w.Status != "processing" {
			return domain.ErrWaypointOutOfOrderf(orderID, sequence)
		}
		if !ValidateConfirmationCode(w.ConfirmationCode, params.ConfirmationCode) {
			return domain.ErrValidationf("confirmation code does not match")
		}
		w.Status = "completed"
		w.EndAt = &now
		w.PhotoURLs = params.PhotoURLs
		return nil
	})
	if err != nil {
		return err
	}

	for _, w := range order.WaypointsSummary {
		if w.Sequence > sequence && w.Type == "delivery" {
			hasNextDelivery = true
			break
		}
	}
	if hasNextDelivery {
		if err := m.store.AppendOrderStatusLog(ctx, orderID, "EN_ROUTE_TO_DELIVERY", nil); err != nil {
			return err
		}
	}

	return m.checkMissionTerminal(ctx, orderID)
}

// Fail implements `* -> failed`.
func (m *StateMachine) Fail(ctx context.Context, orderID string, sequence int, driverID, messageIssue string) error {
	if messageIssue == "" {
		return domain.ErrValidationf("message_issue is required to fail a waypoint")
	}
	order, err := m.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return domain.ErrNotFoundf("order", orderID)
	}
	if order.DriverID == nil || *order.DriverID != driverID {
		return domain.ErrForbiddenf("driver %s is not assigned to order %s", driverID, orderID)
	}

	err = m.store.TransitionWaypoint(ctx, orderID, sequence, func(w *domain.WaypointSummaryItem) error {
		w.Status = "failed"
		w.MessageIssue = &messageIssue
		return nil
	})
	if err != nil {
		return err
	}
	return m.checkMissionTerminal(ctx, orderID)
}

// requirePredecessorTerminal enforces "requires... previous waypoint (if
// any) is completed/skipped".
func requirePredecessorTerminal(order *domain.Order, sequence int) error {
	for _, w := range order.WaypointsSummary {
		if w.Sequence == sequence-1 {
			if w.Status != "completed" && w.Status != "skipped" {
				return domain.ErrWaypointOutOfOrderf(order.ID, sequence)
			}
		}
	}
	return nil
}

// checkMissionTerminal re-reads the order and, if every waypoint has
// reached a terminal state, finalizes the mission and publishes the
// corresponding lifecycle event ("Mission terminal states").
func (m *StateMachine) checkMissionTerminal(ctx context.Context, orderID string) error {
	order, err := m.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return nil
	}

	completed, failed, total := 0, 0, 0
	for _, w := range order.WaypointsSummary {
		switch w.Status {
		case "completed":
			completed++
			total++
		case "failed", "skipped":
			failed++
			total++
		default:
			return nil // not every waypoint has reached a terminal state yet
		}
	}
	if total == 0 {
		return nil
	}

	switch {
	case failed == 0:
		remuneration := order.Remuneration
		if err := m.store.FinalizeMission(ctx, orderID, "SUCCESS", remuneration, nil); err != nil {
			return err
		}
		return m.publish(ctx, events.Completed, orderID, order, remuneration)
	case completed > 0:
		remuneration := proratedRemuneration(order.Remuneration, completed, total)
		reason := "partial_completion"
		if err := m.store.FinalizeMission(ctx, orderID, "PARTIALLY_COMPLETED", remuneration, &reason); err != nil {
			return err
		}
		return m.publish(ctx, events.Completed, orderID, order, remuneration)
	default:
		reason := "all_waypoints_failed"
		if err := m.store.FinalizeMission(ctx, orderID, "FAILED", 0, &reason); err != nil {
			return err
		}
		return m.publish(ctx, events.Failed, orderID, order, 0)
	}
}

// proratedRemuneration prorates the order's remuneration by
// completed-waypoint count, integer division.
func proratedRemuneration(total int64, completed, allCount int) int64 {
	if allCount == 0 {
		return 0
	}
	return total * int64(completed) / int64(allCount)
}

func (m *StateMachine) publish(ctx context.Context, eventType events.EventType, orderID string, order *domain.Order, finalRemuneration int64) error {
	ev, err := events.NewBaseEvent(eventType, orderID, map[string]interface{}{
		"final_remuneration": finalRemuneration,
	})
	if err != nil {
		return err
	}
	if order.DriverID != nil {
		ev.DriverID = *order.DriverID
	}
	_, err = m.log.Append(ctx, *ev)
	return err
}
