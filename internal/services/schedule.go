// Package services provides business logic and orchestration for the dues
// ledger.
//
// This file implements the Strategy Pattern for payment-schedule generation.
// Each machine-generated plan kind (monthly, bimonthly, semester) has its own
// generator; the custom plan is never generated, its installments come from
// the caller verbatim.
package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"treasury/internal/core"
)

// ScheduleGenerator is the strategy interface for producing a member's
// installment plan from the dues amount and a start date.
type ScheduleGenerator interface {
	Generate(dues decimal.Decimal, start time.Time) []core.Installment
}

// MonthlyGenerator splits the dues into 4 equal installments due on the 1st of
// four consecutive months starting at the start date's month.
type MonthlyGenerator struct{}

func (MonthlyGenerator) Generate(dues decimal.Decimal, start time.Time) []core.Installment {
	per := dues.Div(decimal.NewFromInt(4))
	base := firstOfMonth(start)

	schedule := make([]core.Installment, 0, 4)
	for i := 0; i < 4; i++ {
		schedule = append(schedule, core.Installment{
			DueDate:     base.AddDate(0, i, 0),
			Amount:      per,
			Description: fmt.Sprintf("Monthly payment %d/4", i+1),
		})
	}
	return schedule
}

// BimonthlyGenerator splits the dues into 2 equal installments 60 days apart,
// each normalized to the 1st of its month.
type BimonthlyGenerator struct{}

func (BimonthlyGenerator) Generate(dues decimal.Decimal, start time.Time) []core.Installment {
	per := dues.Div(decimal.NewFromInt(2))
	base := firstOfMonth(start)

	schedule := make([]core.Installment, 0, 2)
	for i := 0; i < 2; i++ {
		schedule = append(schedule, core.Installment{
			DueDate:     firstOfMonth(base.AddDate(0, 0, 60*i)),
			Amount:      per,
			Description: fmt.Sprintf("Bi-monthly payment %d/2", i+1),
		})
	}
	return schedule
}

// SemesterGenerator produces a single installment for the full amount, due
// immediately.
type SemesterGenerator struct{}

func (SemesterGenerator) Generate(dues decimal.Decimal, start time.Time) []core.Installment {
	return []core.Installment{{
		DueDate:     start,
		Amount:      dues,
		Description: "Full semester payment",
	}}
}

var scheduleGenerators = map[core.PaymentPlan]ScheduleGenerator{
	core.PlanMonthly:   MonthlyGenerator{},
	core.PlanBimonthly: BimonthlyGenerator{},
	core.PlanSemester:  SemesterGenerator{},
}

// GenerateSchedule produces the installment plan for a machine-generated plan
// kind and checks that the installments sum to the dues amount. The custom
// plan has no generator and no sum constraint.
func GenerateSchedule(plan core.PaymentPlan, dues decimal.Decimal, start time.Time) ([]core.Installment, error) {
	gen, ok := scheduleGenerators[plan]
	if !ok {
		return nil, fmt.Errorf("no schedule generator for plan %q: %w", plan, core.ErrInvalidPlan)
	}

	schedule := gen.Generate(dues, start)

	sum := decimal.Zero
	for _, inst := range schedule {
		sum = sum.Add(inst.Amount)
	}
	if !sum.Equal(dues) {
		return nil, fmt.Errorf("schedule for plan %q sums to %s, dues are %s", plan, sum, dues)
	}
	return schedule, nil
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
