// Package core defines the domain model of the dues ledger.
//
// This file normalizes member documents as found on disk. Documents written by
// earlier versions of the system stored the contact under a "phone" field and
// carried no contact kind; NormalizeMember migrates them in one place so the
// rest of the code only ever sees the current shape.
package core

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// rawMember mirrors Member but tolerates the legacy field layout.
type rawMember struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Contact     string          `json:"contact"`
	Phone       string          `json:"phone"`
	ContactKind ContactKind     `json:"contact_type"`
	DuesAmount  decimal.Decimal `json:"dues_amount"`
	PaymentPlan PaymentPlan     `json:"payment_plan"`
	Schedule    []Installment   `json:"custom_schedule"`
	Payments    []Payment       `json:"payments_made"`
	SemesterID  string          `json:"semester_id"`
}

// NormalizeMember converts a single member document into a Member. It is a
// pure function: the caller decides when (at load time) and what to do with
// the result.
func NormalizeMember(doc json.RawMessage) (Member, error) {
	var raw rawMember
	if err := json.Unmarshal(doc, &raw); err != nil {
		return Member{}, fmt.Errorf("decode member document: %w", err)
	}

	contact := raw.Contact
	if contact == "" {
		contact = raw.Phone
	}

	kind := raw.ContactKind
	if kind == "" {
		kind = ContactPhone
	}
	// Legacy documents default to phone even when the contact is an address.
	if kind == ContactPhone && ClassifyContact(contact) == ContactEmail {
		kind = ContactEmail
	}

	return Member{
		ID:          raw.ID,
		Name:        raw.Name,
		Contact:     contact,
		ContactKind: kind,
		DuesAmount:  raw.DuesAmount,
		PaymentPlan: raw.PaymentPlan,
		Schedule:    raw.Schedule,
		Payments:    raw.Payments,
		SemesterID:  raw.SemesterID,
	}, nil
}
