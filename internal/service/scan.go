package service

import (
	"context"
	"strings"

	"github.com/iliyamo/ticket-marketplace/internal/metrics"
	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/repository"
)

// Scanner redeems tickets at the door.
type Scanner struct {
	base
}

// Scan redeems code at eventID on behalf of the event's organizer.  The
// checks run in a fixed order: the scanning event must belong to the
// caller, then the ticket must exist, then wrong_event, cancelled,
// already_used and finally used.  Only the last outcome changes state.
func (s *Scanner) Scan(ctx context.Context, organizerID uint64, code string, eventID uint64) (model.ScanResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", newError(KindValidation, "code is required")
	}
	var result model.ScanResult
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		ev, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			return fromRepo(err, "event")
		}
		if ev.OrganizerID != organizerID {
			return newError(KindForbidden, "event %d is not yours", eventID)
		}
		tk, err := tx.LockTicketByCode(ctx, code)
		if err != nil {
			return fromRepo(err, "ticket")
		}
		tc, err := tx.GetTicketClass(ctx, tk.TicketClassID)
		if err != nil {
			return fromRepo(err, "ticket class")
		}
		switch {
		case tc.EventID != eventID:
			result = model.ScanWrongEvent
		case tk.IsCancelled:
			result = model.ScanCancelled
		case tk.IsUsed:
			result = model.ScanAlreadyUsed
		default:
			if err := tx.MarkTicketUsed(ctx, tk.ID, s.now()); err != nil {
				return err
			}
			result = model.ScanUsed
		}
		return nil
	})
	if err != nil {
		metrics.Scan(string(KindOf(err)))
		return "", err
	}
	metrics.Scan(string(result))
	return result, nil
}
