package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"treasury/internal/core"
)

const (
	StatusPaid    = "paid"
	StatusPending = "pending"
	StatusOverdue = "overdue"
)

// InstallmentStatus is an installment annotated with how much of it is still
// owed given the payments made so far.
type InstallmentStatus struct {
	core.Installment
	Status    string          `json:"status"`
	AmountDue decimal.Decimal `json:"amount_due"`
}

// OutstandingItem is the next amount a member owes: either the first unpaid
// installment of their schedule, or the full balance due now for members
// without a schedule.
type OutstandingItem struct {
	MemberID    string          `json:"member_id"`
	MemberName  string          `json:"member_name"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     time.Time       `json:"due_date"`
	Status      string          `json:"status"`
}

// DuesSummary aggregates collection progress across all members.
type DuesSummary struct {
	TotalProjected     decimal.Decimal `json:"total_projected"`
	TotalCollected     decimal.Decimal `json:"total_collected"`
	Outstanding        decimal.Decimal `json:"outstanding"`
	CollectionRate     float64         `json:"collection_rate"`
	MembersPaidUp      int             `json:"members_paid_up"`
	MembersOutstanding int             `json:"members_outstanding"`
}

// BudgetLine is the spent-versus-limit view of one budget category.
type BudgetLine struct {
	Spent       decimal.Decimal `json:"spent"`
	Income      decimal.Decimal `json:"income"`
	Limit       decimal.Decimal `json:"budget_limit"`
	Remaining   decimal.Decimal `json:"remaining"`
	PercentUsed float64         `json:"percent_used"`
}

// MonthlyIncome is the dues income collected during one calendar month.
type MonthlyIncome struct {
	Month            string          `json:"month"` // YYYY-MM
	MonthName        string          `json:"month_name"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	TransactionCount int             `json:"transaction_count"`
}

// Balance is the member's dues amount minus everything they have paid. A
// negative balance means the member overpaid; it is not clamped.
func Balance(m core.Member) decimal.Decimal {
	return m.DuesAmount.Sub(m.TotalPaid())
}

// ScheduleWithStatus walks the member's installments in order, keeping a
// running cumulative-due total. An installment counts as paid once total
// payments reach its cumulative threshold, so a partial payment always covers
// the earliest unpaid installment first.
func ScheduleWithStatus(m core.Member) []InstallmentStatus {
	totalPaid := m.TotalPaid()
	running := decimal.Zero

	statuses := make([]InstallmentStatus, 0, len(m.Schedule))
	for _, inst := range m.Schedule {
		running = running.Add(inst.Amount)

		st := InstallmentStatus{Installment: inst, Status: StatusPaid, AmountDue: decimal.Zero}
		if totalPaid.LessThan(running) {
			due := running.Sub(totalPaid)
			if due.GreaterThan(inst.Amount) {
				due = inst.Amount
			}
			st.Status = StatusPending
			st.AmountDue = due
		}
		statuses = append(statuses, st)
	}
	return statuses
}

// OutstandingItems reports, for every member with a positive balance, the next
// installment that payments have not yet covered. Members without a schedule
// owe their full balance now.
func OutstandingItems(members []core.Member, now time.Time) []OutstandingItem {
	var items []OutstandingItem
	for _, m := range members {
		balance := Balance(m)
		if !balance.IsPositive() {
			continue
		}

		if len(m.Schedule) == 0 {
			items = append(items, OutstandingItem{
				MemberID:    m.ID,
				MemberName:  m.Name,
				Description: fmt.Sprintf("Outstanding dues from %s", m.Name),
				Amount:      balance,
				DueDate:     now,
				Status:      StatusPending,
			})
			continue
		}

		totalPaid := m.TotalPaid()
		running := decimal.Zero
		for _, inst := range m.Schedule {
			running = running.Add(inst.Amount)
			if totalPaid.GreaterThanOrEqual(running) {
				continue
			}

			amount := inst.Amount
			if balance.LessThan(amount) {
				amount = balance
			}
			status := StatusPending
			if inst.DueDate.Before(now) {
				status = StatusOverdue
			}
			items = append(items, OutstandingItem{
				MemberID:    m.ID,
				MemberName:  m.Name,
				Description: fmt.Sprintf("Outstanding dues - %s", inst.Description),
				Amount:      amount,
				DueDate:     inst.DueDate,
				Status:      status,
			})
			break
		}
	}
	return items
}

// SummarizeDues computes collection progress over all members.
func SummarizeDues(members []core.Member) DuesSummary {
	var s DuesSummary
	s.TotalProjected = decimal.Zero
	s.TotalCollected = decimal.Zero
	s.Outstanding = decimal.Zero

	for _, m := range members {
		paid := m.TotalPaid()
		s.TotalProjected = s.TotalProjected.Add(m.DuesAmount)
		s.TotalCollected = s.TotalCollected.Add(paid)

		balance := m.DuesAmount.Sub(paid)
		if balance.IsPositive() {
			s.MembersOutstanding++
			s.Outstanding = s.Outstanding.Add(balance)
		} else {
			s.MembersPaidUp++
		}
	}

	if s.TotalProjected.IsPositive() {
		rate, _ := s.TotalCollected.Div(s.TotalProjected).Mul(decimal.NewFromInt(100)).Float64()
		s.CollectionRate = rate
	}
	return s
}

// SummarizeBudget computes per-category spending against the configured
// ceilings. Only the fixed budget categories appear in the result.
func SummarizeBudget(transactions []core.Transaction, limits map[string]decimal.Decimal) map[string]BudgetLine {
	summary := make(map[string]BudgetLine, len(core.BudgetCategories))
	for _, category := range core.BudgetCategories {
		line := BudgetLine{
			Spent:  decimal.Zero,
			Income: decimal.Zero,
			Limit:  limits[category],
		}
		for _, tx := range transactions {
			if tx.Category != category {
				continue
			}
			switch tx.Kind {
			case core.Expense:
				line.Spent = line.Spent.Add(tx.Amount)
			case core.Income:
				line.Income = line.Income.Add(tx.Amount)
			}
		}

		line.Remaining = line.Limit.Sub(line.Spent)
		if line.Limit.IsPositive() {
			used, _ := line.Spent.Div(line.Limit).Mul(decimal.NewFromInt(100)).Float64()
			line.PercentUsed = used
		}
		summary[category] = line
	}
	return summary
}

// SummarizeMonthlyIncome breaks Dues Collection income down by calendar
// month, newest first.
func SummarizeMonthlyIncome(transactions []core.Transaction) []MonthlyIncome {
	byMonth := make(map[string]*MonthlyIncome)
	for _, tx := range transactions {
		if tx.Category != core.DuesCollection || tx.Kind != core.Income {
			continue
		}
		key := tx.Date.Format("2006-01")
		entry, ok := byMonth[key]
		if !ok {
			entry = &MonthlyIncome{
				Month:       key,
				MonthName:   tx.Date.Format("January 2006"),
				TotalAmount: decimal.Zero,
			}
			byMonth[key] = entry
		}
		entry.TotalAmount = entry.TotalAmount.Add(tx.Amount)
		entry.TransactionCount++
	}

	months := make([]MonthlyIncome, 0, len(byMonth))
	for _, entry := range byMonth {
		months = append(months, *entry)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month > months[j].Month })
	return months
}
