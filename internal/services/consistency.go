package services

import (
	"context"
	"log/slog"
	"time"

	"treasury/internal/core"
	"treasury/internal/log"
)

// fuzzyMatchWindow bounds how far apart a legacy payment and its transaction
// may be and still be treated as the same event.
const fuzzyMatchWindow = 60 * time.Second

// removeCorrespondingPaymentLocked removes the member payment funded by a
// Dues Collection income transaction that is being deleted. Two passes over
// all members: an exact transaction-id match first, then a fuzzy fallback for
// legacy payments that carry no link (same amount, timestamps within
// fuzzyMatchWindow). When neither pass matches, the gap is logged and the
// caller deletes the transaction anyway.
func (s *LedgerService) removeCorrespondingPaymentLocked(ctx context.Context, tx core.Transaction) bool {
	for id, m := range s.members {
		for i, p := range m.Payments {
			if p.TransactionID == tx.ID {
				return s.deletePaymentLocked(ctx, id, i)
			}
		}
	}

	for id, m := range s.members {
		for i, p := range m.Payments {
			if p.TransactionID != "" {
				continue
			}
			if !p.Amount.Equal(tx.Amount) {
				continue
			}
			diff := p.Date.Sub(tx.Date)
			if diff < 0 {
				diff = -diff
			}
			if diff < fuzzyMatchWindow {
				return s.deletePaymentLocked(ctx, id, i)
			}
		}
	}

	slog.WarnContext(ctx, "No payment matched deleted dues transaction",
		log.FieldTransaction, tx.ID,
		log.FieldAmount, tx.Amount)
	return false
}

func (s *LedgerService) deletePaymentLocked(ctx context.Context, memberID string, idx int) bool {
	prev := s.members[memberID]

	payments := make([]core.Payment, 0, len(prev.Payments)-1)
	payments = append(payments, prev.Payments[:idx]...)
	payments = append(payments, prev.Payments[idx+1:]...)

	member := prev
	member.Payments = payments
	s.members[memberID] = member

	if err := s.saveMembers(); err != nil {
		s.members[memberID] = prev
		slog.ErrorContext(ctx, "Failed to persist payment removal",
			log.FieldMemberID, memberID,
			log.FieldError, err)
		return false
	}

	s.publish(ctx, DocMembers, "payment_removed")
	return true
}
