package services

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"treasury/internal/core"
)

func TestGenerateSchedule_Monthly(t *testing.T) {
	start := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	schedule, err := GenerateSchedule(core.PlanMonthly, decimal.NewFromInt(100), start)
	if err != nil {
		t.Fatalf("GenerateSchedule() error = %v", err)
	}

	if len(schedule) != 4 {
		t.Fatalf("len(schedule) = %d, want 4", len(schedule))
	}

	wantDates := []time.Time{
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	wantLabels := []string{
		"Monthly payment 1/4",
		"Monthly payment 2/4",
		"Monthly payment 3/4",
		"Monthly payment 4/4",
	}
	per := decimal.NewFromInt(25)

	for i, inst := range schedule {
		if !inst.DueDate.Equal(wantDates[i]) {
			t.Errorf("installment %d due = %v, want %v", i, inst.DueDate, wantDates[i])
		}
		if !inst.Amount.Equal(per) {
			t.Errorf("installment %d amount = %s, want 25", i, inst.Amount)
		}
		if inst.Description != wantLabels[i] {
			t.Errorf("installment %d label = %q, want %q", i, inst.Description, wantLabels[i])
		}
	}
}

func TestGenerateSchedule_Bimonthly(t *testing.T) {
	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	schedule, err := GenerateSchedule(core.PlanBimonthly, decimal.NewFromInt(100), start)
	if err != nil {
		t.Fatalf("GenerateSchedule() error = %v", err)
	}

	if len(schedule) != 2 {
		t.Fatalf("len(schedule) = %d, want 2", len(schedule))
	}

	// 60 days from Jan 1 lands in March; normalized back to the 1st.
	wantDates := []time.Time{
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	per := decimal.NewFromInt(50)

	for i, inst := range schedule {
		if !inst.DueDate.Equal(wantDates[i]) {
			t.Errorf("installment %d due = %v, want %v", i, inst.DueDate, wantDates[i])
		}
		if !inst.Amount.Equal(per) {
			t.Errorf("installment %d amount = %s, want 50", i, inst.Amount)
		}
	}
	if schedule[0].Description != "Bi-monthly payment 1/2" {
		t.Errorf("label = %q", schedule[0].Description)
	}
}

func TestGenerateSchedule_Semester(t *testing.T) {
	start := time.Date(2025, 8, 20, 9, 0, 0, 0, time.UTC)
	dues := decimal.RequireFromString("750.50")
	schedule, err := GenerateSchedule(core.PlanSemester, dues, start)
	if err != nil {
		t.Fatalf("GenerateSchedule() error = %v", err)
	}

	if len(schedule) != 1 {
		t.Fatalf("len(schedule) = %d, want 1", len(schedule))
	}
	if !schedule[0].DueDate.Equal(start) {
		t.Errorf("due = %v, want the start date", schedule[0].DueDate)
	}
	if !schedule[0].Amount.Equal(dues) {
		t.Errorf("amount = %s, want %s", schedule[0].Amount, dues)
	}
	if schedule[0].Description != "Full semester payment" {
		t.Errorf("label = %q", schedule[0].Description)
	}
}

func TestGenerateSchedule_SumInvariant(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	plans := []core.PaymentPlan{core.PlanMonthly, core.PlanBimonthly, core.PlanSemester}
	amounts := []string{"100", "333.33", "0.01", "499.99"}

	for _, plan := range plans {
		for _, amount := range amounts {
			dues := decimal.RequireFromString(amount)
			schedule, err := GenerateSchedule(plan, dues, start)
			if err != nil {
				t.Fatalf("GenerateSchedule(%s, %s) error = %v", plan, amount, err)
			}

			sum := decimal.Zero
			for _, inst := range schedule {
				sum = sum.Add(inst.Amount)
			}
			if !sum.Equal(dues) {
				t.Errorf("plan %s dues %s: schedule sums to %s", plan, amount, sum)
			}
		}
	}
}

func TestGenerateSchedule_ZeroDues(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	schedule, err := GenerateSchedule(core.PlanMonthly, decimal.Zero, start)
	if err != nil {
		t.Fatalf("GenerateSchedule() error = %v", err)
	}
	if len(schedule) != 4 {
		t.Fatalf("len(schedule) = %d, want the usual 4 installments", len(schedule))
	}
	for i, inst := range schedule {
		if !inst.Amount.IsZero() {
			t.Errorf("installment %d amount = %s, want 0", i, inst.Amount)
		}
	}
}

func TestGenerateSchedule_NoGeneratorForCustom(t *testing.T) {
	_, err := GenerateSchedule(core.PlanCustom, decimal.NewFromInt(100), time.Now())
	if !errors.Is(err, core.ErrInvalidPlan) {
		t.Errorf("GenerateSchedule(custom) error = %v, want ErrInvalidPlan", err)
	}

	_, err = GenerateSchedule("weekly", decimal.NewFromInt(100), time.Now())
	if !errors.Is(err, core.ErrInvalidPlan) {
		t.Errorf("GenerateSchedule(weekly) error = %v, want ErrInvalidPlan", err)
	}
}
