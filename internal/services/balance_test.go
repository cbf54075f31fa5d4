package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"treasury/internal/core"
)

func memberWithPayments(dues string, payments ...string) core.Member {
	m := core.Member{
		ID:         "m1",
		Name:       "John Smith",
		DuesAmount: decimal.RequireFromString(dues),
	}
	for i, p := range payments {
		m.Payments = append(m.Payments, core.Payment{
			ID:     core.NewID(),
			Amount: decimal.RequireFromString(p),
			Date:   time.Date(2025, 1, 1+i, 0, 0, 0, 0, time.UTC),
		})
	}
	return m
}

func TestBalance(t *testing.T) {
	tests := []struct {
		name   string
		member core.Member
		want   string
	}{
		{"no payments", memberWithPayments("500"), "500"},
		{"partially paid", memberWithPayments("500", "125", "75"), "300"},
		{"paid up", memberWithPayments("200", "200"), "0"},
		{"overpaid is negative", memberWithPayments("100", "150"), "-50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Balance(tt.member)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Balance() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBalance_Monotonic(t *testing.T) {
	m := memberWithPayments("400")
	prev := Balance(m)
	for _, amount := range []string{"50", "0", "125.25", "300"} {
		m.Payments = append(m.Payments, core.Payment{
			Amount: decimal.RequireFromString(amount),
		})
		next := Balance(m)
		if next.GreaterThan(prev) {
			t.Fatalf("balance increased from %s to %s after a payment of %s", prev, next, amount)
		}
		prev = next
	}
}

func TestScheduleWithStatus_FIFOAllocation(t *testing.T) {
	m := memberWithPayments("300", "150")
	for i := 0; i < 3; i++ {
		m.Schedule = append(m.Schedule, core.Installment{
			DueDate: time.Date(2025, time.Month(1+i), 1, 0, 0, 0, 0, time.UTC),
			Amount:  decimal.NewFromInt(100),
		})
	}

	statuses := ScheduleWithStatus(m)
	if len(statuses) != 3 {
		t.Fatalf("len(statuses) = %d, want 3", len(statuses))
	}

	want := []struct {
		status    string
		amountDue string
	}{
		{StatusPaid, "0"},
		{StatusPending, "50"},
		{StatusPending, "100"},
	}
	for i, w := range want {
		if statuses[i].Status != w.status {
			t.Errorf("installment %d status = %q, want %q", i, statuses[i].Status, w.status)
		}
		if !statuses[i].AmountDue.Equal(decimal.RequireFromString(w.amountDue)) {
			t.Errorf("installment %d amount due = %s, want %s", i, statuses[i].AmountDue, w.amountDue)
		}
	}
}

func TestScheduleWithStatus_FullyPaid(t *testing.T) {
	m := memberWithPayments("200", "200")
	m.Schedule = []core.Installment{
		{Amount: decimal.NewFromInt(100)},
		{Amount: decimal.NewFromInt(100)},
	}

	for i, st := range ScheduleWithStatus(m) {
		if st.Status != StatusPaid {
			t.Errorf("installment %d status = %q, want paid", i, st.Status)
		}
		if !st.AmountDue.IsZero() {
			t.Errorf("installment %d amount due = %s, want 0", i, st.AmountDue)
		}
	}
}

func TestOutstandingItems(t *testing.T) {
	now := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)

	scheduled := memberWithPayments("300", "100")
	scheduled.ID = "scheduled"
	scheduled.Name = "Paul"
	for i := 0; i < 3; i++ {
		scheduled.Schedule = append(scheduled.Schedule, core.Installment{
			DueDate:     time.Date(2025, time.Month(1+i), 1, 0, 0, 0, 0, time.UTC),
			Amount:      decimal.NewFromInt(100),
			Description: "Monthly payment",
		})
	}

	unscheduled := memberWithPayments("250")
	unscheduled.ID = "unscheduled"
	unscheduled.Name = "George"

	paidUp := memberWithPayments("100", "100")
	paidUp.ID = "paid"

	items := OutstandingItems([]core.Member{scheduled, unscheduled, paidUp}, now)
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}

	byMember := map[string]OutstandingItem{}
	for _, item := range items {
		byMember[item.MemberID] = item
	}

	got, ok := byMember["scheduled"]
	if !ok {
		t.Fatal("no item for the scheduled member")
	}
	// First unpaid installment is the February one, which is already past.
	wantDue := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	if !got.DueDate.Equal(wantDue) {
		t.Errorf("due date = %v, want %v", got.DueDate, wantDue)
	}
	if got.Status != StatusOverdue {
		t.Errorf("status = %q, want overdue", got.Status)
	}
	if !got.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("amount = %s, want 100", got.Amount)
	}

	got, ok = byMember["unscheduled"]
	if !ok {
		t.Fatal("no item for the unscheduled member")
	}
	if !got.Amount.Equal(decimal.NewFromInt(250)) {
		t.Errorf("amount = %s, want the full balance", got.Amount)
	}
	if !got.DueDate.Equal(now) || got.Status != StatusPending {
		t.Errorf("unscheduled member should owe the full balance now, got %+v", got)
	}
}

func TestSummarizeDues(t *testing.T) {
	members := []core.Member{
		memberWithPayments("200", "200"),
		memberWithPayments("200", "50"),
		memberWithPayments("100"),
	}

	s := SummarizeDues(members)
	if !s.TotalProjected.Equal(decimal.NewFromInt(500)) {
		t.Errorf("TotalProjected = %s, want 500", s.TotalProjected)
	}
	if !s.TotalCollected.Equal(decimal.NewFromInt(250)) {
		t.Errorf("TotalCollected = %s, want 250", s.TotalCollected)
	}
	if !s.Outstanding.Equal(decimal.NewFromInt(250)) {
		t.Errorf("Outstanding = %s, want 250", s.Outstanding)
	}
	if s.MembersPaidUp != 1 || s.MembersOutstanding != 2 {
		t.Errorf("paid up = %d, outstanding = %d, want 1 and 2", s.MembersPaidUp, s.MembersOutstanding)
	}
	if s.CollectionRate != 50 {
		t.Errorf("CollectionRate = %v, want 50", s.CollectionRate)
	}
}

func TestSummarizeBudget(t *testing.T) {
	transactions := []core.Transaction{
		{Category: "Social", Kind: core.Expense, Amount: decimal.NewFromInt(150)},
		{Category: "Social", Kind: core.Expense, Amount: decimal.NewFromInt(50)},
		{Category: "Social", Kind: core.Income, Amount: decimal.NewFromInt(30)},
		{Category: core.DuesCollection, Kind: core.Income, Amount: decimal.NewFromInt(500)},
	}
	limits := map[string]decimal.Decimal{"Social": decimal.NewFromInt(400)}

	summary := SummarizeBudget(transactions, limits)

	social := summary["Social"]
	if !social.Spent.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Spent = %s, want 200", social.Spent)
	}
	if !social.Income.Equal(decimal.NewFromInt(30)) {
		t.Errorf("Income = %s, want 30", social.Income)
	}
	if !social.Remaining.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Remaining = %s, want 200", social.Remaining)
	}
	if social.PercentUsed != 50 {
		t.Errorf("PercentUsed = %v, want 50", social.PercentUsed)
	}

	// Dues Collection is not a budget category.
	if _, ok := summary[core.DuesCollection]; ok {
		t.Error("summary contains the reserved Dues Collection category")
	}
}

func TestSummarizeMonthlyIncome(t *testing.T) {
	transactions := []core.Transaction{
		{Category: core.DuesCollection, Kind: core.Income, Amount: decimal.NewFromInt(100),
			Date: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)},
		{Category: core.DuesCollection, Kind: core.Income, Amount: decimal.NewFromInt(50),
			Date: time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)},
		{Category: core.DuesCollection, Kind: core.Income, Amount: decimal.NewFromInt(75),
			Date: time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC)},
		{Category: "Social", Kind: core.Expense, Amount: decimal.NewFromInt(40),
			Date: time.Date(2025, 2, 6, 0, 0, 0, 0, time.UTC)},
	}

	months := SummarizeMonthlyIncome(transactions)
	if len(months) != 2 {
		t.Fatalf("len(months) = %d, want 2", len(months))
	}

	// Newest first.
	if months[0].Month != "2025-02" || months[1].Month != "2025-01" {
		t.Errorf("order = [%s, %s], want newest first", months[0].Month, months[1].Month)
	}
	if !months[1].TotalAmount.Equal(decimal.NewFromInt(150)) || months[1].TransactionCount != 2 {
		t.Errorf("January = %s over %d transactions, want 150 over 2",
			months[1].TotalAmount, months[1].TransactionCount)
	}
	if months[0].MonthName != "February 2025" {
		t.Errorf("MonthName = %q, want %q", months[0].MonthName, "February 2025")
	}
}
