package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PlanMonthly   PaymentPlan = "monthly"
	PlanBimonthly PaymentPlan = "bimonthly"
	PlanSemester  PaymentPlan = "semester"
	PlanCustom    PaymentPlan = "custom"
)

const (
	ContactPhone ContactKind = "phone"
	ContactEmail ContactKind = "email"
)

const (
	Income  TransactionKind = "income"
	Expense TransactionKind = "expense"
)

// DuesCollection is the reserved transaction category for income generated by
// member payments. It is not a budgetable category.
const DuesCollection = "Dues Collection"

// BudgetCategories are the fixed expense categories a budget ceiling can be
// set for.
var BudgetCategories = []string{
	"Executive(GHQ, IFC, Flights)",
	"Brotherhood",
	"Social",
	"Philanthropy",
	"Recruitment",
	"Phi ED",
	"Housing",
	"Bank Maintenance",
}

type (
	PaymentPlan     string
	ContactKind     string
	TransactionKind string

	// Installment is one scheduled partial-due entry of a member's plan.
	Installment struct {
		DueDate     time.Time       `json:"due_date"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
	}

	// Payment records money received from a member. TransactionID links back
	// to the Dues Collection income transaction created alongside it; older
	// payments may lack the link.
	Payment struct {
		ID            string          `json:"id"`
		Amount        decimal.Decimal `json:"amount"`
		Date          time.Time       `json:"date"`
		Method        string          `json:"method"`
		TransactionID string          `json:"transaction_id,omitempty"`
	}

	Member struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		Contact     string          `json:"contact"`
		ContactKind ContactKind     `json:"contact_type"`
		DuesAmount  decimal.Decimal `json:"dues_amount"`
		PaymentPlan PaymentPlan     `json:"payment_plan"`
		Schedule    []Installment   `json:"custom_schedule"`
		Payments    []Payment       `json:"payments_made"`
		SemesterID  string          `json:"semester_id"`
	}

	Transaction struct {
		ID          string          `json:"id"`
		Date        time.Time       `json:"date"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Kind        TransactionKind `json:"type"`
		SemesterID  string          `json:"semester_id"`
	}

	Semester struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Year      int       `json:"year"`
		Season    string    `json:"season"`
		StartDate time.Time `json:"start_date"`
		EndDate   time.Time `json:"end_date"`
		IsCurrent bool      `json:"is_current"`
		Archived  bool      `json:"archived"`
	}

	// User is an entry of the users document. The username is the map key.
	User struct {
		PasswordHash string    `json:"password_hash"`
		Role         string    `json:"role"`
		CreatedAt    time.Time `json:"created_at"`
	}
)

var (
	ErrNotFound        = errors.New("not found")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyContact    = errors.New("empty contact")
	ErrNegativeAmount  = errors.New("negative amount")
	ErrInvalidPlan     = errors.New("invalid payment plan")
	ErrInvalidKind     = errors.New("invalid transaction kind")
	ErrInvalidCategory = errors.New("invalid category")
)

// NewID returns a fresh entity identifier.
func NewID() string {
	return uuid.NewString()
}

// ClassifyContact derives the contact kind from the contact string. A contact
// containing both "@" and "." is treated as an email address, anything else as
// a phone number.
func ClassifyContact(contact string) ContactKind {
	if strings.Contains(contact, "@") && strings.Contains(contact, ".") {
		return ContactEmail
	}
	return ContactPhone
}

func (p PaymentPlan) Valid() bool {
	switch p {
	case PlanMonthly, PlanBimonthly, PlanSemester, PlanCustom:
		return true
	}
	return false
}

func (k TransactionKind) Valid() bool {
	return k == Income || k == Expense
}

// KnownCategory reports whether category is a budget category or the reserved
// Dues Collection category.
func KnownCategory(category string) bool {
	if category == DuesCollection {
		return true
	}
	for _, c := range BudgetCategories {
		if c == category {
			return true
		}
	}
	return false
}

func (m Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(m.Contact) == "" {
		return ErrEmptyContact
	}
	if m.DuesAmount.IsNegative() {
		return ErrNegativeAmount
	}
	if !m.PaymentPlan.Valid() {
		return ErrInvalidPlan
	}
	return nil
}

func (t Transaction) Validate() error {
	if !KnownCategory(t.Category) {
		return ErrInvalidCategory
	}
	if t.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}

// TotalPaid sums all payments the member has made.
func (m Member) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for _, p := range m.Payments {
		total = total.Add(p.Amount)
	}
	return total
}
