package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"treasury/internal/core"
	"treasury/internal/log"
	"treasury/internal/notify"
)

// Logical document names persisted through the store.
const (
	DocMembers      = "members"
	DocTransactions = "transactions"
	DocBudgetLimits = "budget_limits"
	DocSemesters    = "semesters"
	DocUsers        = "users"
)

// CriticalDocuments lists the documents the store must back up before every
// overwrite.
func CriticalDocuments() []string {
	return []string{DocMembers, DocUsers}
}

// ErrOrphanedTransaction marks the one partial-failure mode of RecordPayment:
// the income transaction was persisted but the member payment was not. Callers
// must surface it; retrying would duplicate the transaction.
var ErrOrphanedTransaction = errors.New("orphaned transaction")

// DocumentStore is the persistence surface the ledger requires.
type DocumentStore interface {
	Save(name string, doc any) error
	Load(name string, out any) (bool, error)
}

// EventPublisher is notified after every committed mutation so out-of-process
// consumers (exporters, dashboards) can react. Publish failures are logged,
// never propagated: the mutation is already durable.
type EventPublisher interface {
	PublishDocumentChange(ctx context.Context, document, action string) error
}

// LedgerService owns the in-memory ledger state and is the only component the
// outside world calls. One instance per process, constructed at startup;
// a single RWMutex serializes writers (including the daily reminder worker).
type LedgerService struct {
	mu     sync.RWMutex
	store  DocumentStore
	events EventPublisher

	members      map[string]core.Member
	transactions []core.Transaction
	budgetLimits map[string]decimal.Decimal
	semesters    map[string]core.Semester
	users        map[string]core.User
}

// NewLedgerService loads all documents from the store. Member documents are
// normalized through core.NormalizeMember so legacy field layouts are handled
// once, here.
func NewLedgerService(store DocumentStore, events EventPublisher) (*LedgerService, error) {
	s := &LedgerService{
		store:        store,
		events:       events,
		members:      make(map[string]core.Member),
		budgetLimits: make(map[string]decimal.Decimal),
		semesters:    make(map[string]core.Semester),
		users:        make(map[string]core.User),
	}

	var rawMembers map[string]json.RawMessage
	if _, err := store.Load(DocMembers, &rawMembers); err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	for id, doc := range rawMembers {
		m, err := core.NormalizeMember(doc)
		if err != nil {
			return nil, fmt.Errorf("member %s: %w", id, err)
		}
		s.members[id] = m
	}

	if _, err := store.Load(DocTransactions, &s.transactions); err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	found, err := store.Load(DocBudgetLimits, &s.budgetLimits)
	if err != nil {
		return nil, fmt.Errorf("load budget limits: %w", err)
	}
	if !found {
		for _, category := range core.BudgetCategories {
			s.budgetLimits[category] = decimal.Zero
		}
	}

	if _, err := store.Load(DocSemesters, &s.semesters); err != nil {
		return nil, fmt.Errorf("load semesters: %w", err)
	}
	if len(s.semesters) == 0 {
		sem := defaultSemester(time.Now())
		s.semesters[sem.ID] = sem
		if err := s.saveSemesters(); err != nil {
			return nil, err
		}
		slog.Info("Created default semester", "semester", sem.Name)
	}

	if _, err := store.Load(DocUsers, &s.users); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	slog.Info("Ledger loaded",
		"members", len(s.members),
		"transactions", len(s.transactions),
		"semesters", len(s.semesters),
		"users", len(s.users))
	return s, nil
}

// --- members -----------------------------------------------------------

// AddMember enrolls a member and generates their payment schedule
// immediately. For the custom plan the supplied installments are stored
// verbatim; their sum is deliberately not checked against the dues amount.
func (s *LedgerService) AddMember(ctx context.Context, name, contact string, dues decimal.Decimal, plan core.PaymentPlan, customSchedule []core.Installment) (string, error) {
	member := core.Member{
		ID:          core.NewID(),
		Name:        name,
		Contact:     contact,
		ContactKind: core.ClassifyContact(contact),
		DuesAmount:  dues,
		PaymentPlan: plan,
		Schedule:    customSchedule,
	}
	if err := member.Validate(); err != nil {
		return "", err
	}
	if plan != core.PlanCustom {
		schedule, err := GenerateSchedule(plan, dues, time.Now())
		if err != nil {
			return "", err
		}
		member.Schedule = schedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	member.SemesterID = s.currentSemesterIDLocked()
	s.members[member.ID] = member
	if err := s.saveMembers(); err != nil {
		delete(s.members, member.ID)
		return "", err
	}

	s.publish(ctx, DocMembers, "add")
	return member.ID, nil
}

// UpdateMember edits a member. The schedule is regenerated for the new plan
// unless an explicit custom schedule is supplied. Returns false when the
// member does not exist.
func (s *LedgerService) UpdateMember(ctx context.Context, id, name, contact string, dues decimal.Decimal, plan core.PaymentPlan, customSchedule []core.Installment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.members[id]
	if !ok {
		return false, nil
	}

	member := prev
	member.Name = name
	member.Contact = contact
	member.ContactKind = core.ClassifyContact(contact)
	member.DuesAmount = dues
	member.PaymentPlan = plan
	if err := member.Validate(); err != nil {
		return false, err
	}

	switch {
	case customSchedule != nil:
		member.Schedule = customSchedule
	case plan == core.PlanCustom:
		member.Schedule = nil
	default:
		schedule, err := GenerateSchedule(plan, dues, time.Now())
		if err != nil {
			return false, err
		}
		member.Schedule = schedule
	}

	s.members[id] = member
	if err := s.saveMembers(); err != nil {
		s.members[id] = prev
		return false, err
	}

	s.publish(ctx, DocMembers, "update")
	return true, nil
}

// RemoveMember deletes a member and their payments. The transactions those
// payments pointed at stay in the ledger; transactions carry no back-reference
// so nothing dangles.
func (s *LedgerService) RemoveMember(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.members[id]
	if !ok {
		return false, nil
	}

	delete(s.members, id)
	if err := s.saveMembers(); err != nil {
		s.members[id] = prev
		return false, err
	}

	s.publish(ctx, DocMembers, "remove")
	return true, nil
}

func (s *LedgerService) Member(id string) (core.Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[id]
	return m, ok
}

// Members returns all members ordered by name.
func (s *LedgerService) Members() []core.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.membersLocked()
}

func (s *LedgerService) membersLocked() []core.Member {
	members := make([]core.Member, 0, len(s.members))
	for _, m := range s.members {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	return members
}

// --- transactions ------------------------------------------------------

// AddTransaction appends an income or expense record and returns its id.
func (s *LedgerService) AddTransaction(ctx context.Context, category, description string, amount decimal.Decimal, kind core.TransactionKind) (string, error) {
	tx := core.Transaction{
		ID:          core.NewID(),
		Date:        time.Now(),
		Category:    category,
		Description: description,
		Amount:      amount,
		Kind:        kind,
	}
	if err := tx.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx.SemesterID = s.currentSemesterIDLocked()
	if err := s.appendTransactionLocked(tx); err != nil {
		return "", err
	}

	s.publish(ctx, DocTransactions, "add")
	return tx.ID, nil
}

func (s *LedgerService) appendTransactionLocked(tx core.Transaction) error {
	s.transactions = append(s.transactions, tx)
	if err := s.saveTransactions(); err != nil {
		s.transactions = s.transactions[:len(s.transactions)-1]
		return err
	}
	return nil
}

// UpdateTransaction edits an existing transaction. Returns false when no
// transaction has the given id.
func (s *LedgerService) UpdateTransaction(ctx context.Context, id, category, description string, amount decimal.Decimal, kind core.TransactionKind) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.transactionIndexLocked(id)
	if idx < 0 {
		return false, nil
	}

	prev := s.transactions[idx]
	tx := prev
	tx.Category = category
	tx.Description = description
	tx.Amount = amount
	tx.Kind = kind
	if err := tx.Validate(); err != nil {
		return false, err
	}

	s.transactions[idx] = tx
	if err := s.saveTransactions(); err != nil {
		s.transactions[idx] = prev
		return false, err
	}

	s.publish(ctx, DocTransactions, "update")
	return true, nil
}

// RemoveTransaction deletes a transaction. Deleting a Dues Collection income
// transaction first removes the member payment it funded (exact link, then
// the fuzzy fallback for legacy payments). Returns false when the id is
// unknown or the deletion could not be persisted.
func (s *LedgerService) RemoveTransaction(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.transactionIndexLocked(id)
	if idx < 0 {
		return false, nil
	}

	tx := s.transactions[idx]
	if tx.Category == core.DuesCollection && tx.Kind == core.Income {
		s.removeCorrespondingPaymentLocked(ctx, tx)
	}

	prevAll := s.transactions
	rest := make([]core.Transaction, 0, len(prevAll)-1)
	rest = append(rest, prevAll[:idx]...)
	rest = append(rest, prevAll[idx+1:]...)
	s.transactions = rest

	if err := s.saveTransactions(); err != nil {
		s.transactions = prevAll
		return false, err
	}

	s.publish(ctx, DocTransactions, "remove")
	return true, nil
}

func (s *LedgerService) transactionIndexLocked(id string) int {
	for i, tx := range s.transactions {
		if tx.ID == id {
			return i
		}
	}
	return -1
}

func (s *LedgerService) Transaction(id string) (core.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.transactionIndexLocked(id); idx >= 0 {
		return s.transactions[idx], true
	}
	return core.Transaction{}, false
}

func (s *LedgerService) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// --- payments ----------------------------------------------------------

// RecordPayment records money received from a member. The Dues Collection
// income transaction is appended first so the payment's link is always
// resolvable; then the payment is appended to the member carrying the
// transaction id. If the payment-side save fails the persisted transaction
// stays behind and the returned error wraps ErrOrphanedTransaction.
func (s *LedgerService) RecordPayment(ctx context.Context, memberID string, amount decimal.Decimal, method string, when time.Time) error {
	if amount.IsNegative() {
		return core.ErrNegativeAmount
	}
	if when.IsZero() {
		when = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[memberID]
	if !ok {
		return fmt.Errorf("member %s: %w", memberID, core.ErrNotFound)
	}

	tx := core.Transaction{
		ID:          core.NewID(),
		Date:        when,
		Category:    core.DuesCollection,
		Description: fmt.Sprintf("Payment from %s", member.Name),
		Amount:      amount,
		Kind:        core.Income,
		SemesterID:  s.currentSemesterIDLocked(),
	}
	if err := s.appendTransactionLocked(tx); err != nil {
		return err
	}

	payment := core.Payment{
		ID:            core.NewID(),
		Amount:        amount,
		Date:          when,
		Method:        method,
		TransactionID: tx.ID,
	}
	member.Payments = append(member.Payments, payment)
	s.members[memberID] = member

	if err := s.saveMembers(); err != nil {
		member.Payments = member.Payments[:len(member.Payments)-1]
		s.members[memberID] = member
		return fmt.Errorf("%w: transaction %s persisted without its payment: %w",
			ErrOrphanedTransaction, tx.ID, err)
	}

	s.publish(ctx, DocMembers, "payment")
	s.publish(ctx, DocTransactions, "add")
	return nil
}

// --- computed reads ----------------------------------------------------

// MemberBalance returns dues minus payments for one member.
func (s *LedgerService) MemberBalance(id string) (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[id]
	if !ok {
		return decimal.Zero, false
	}
	return Balance(m), true
}

// MemberSchedule returns the member's installments annotated with paid or
// pending status under the FIFO allocation policy.
func (s *LedgerService) MemberSchedule(id string) ([]InstallmentStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[id]
	if !ok {
		return nil, false
	}
	return ScheduleWithStatus(m), true
}

func (s *LedgerService) Outstanding(now time.Time) []OutstandingItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return OutstandingItems(s.membersLocked(), now)
}

func (s *LedgerService) DuesSummary() DuesSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SummarizeDues(s.membersLocked())
}

func (s *LedgerService) BudgetSummary() map[string]BudgetLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SummarizeBudget(s.transactions, s.budgetLimits)
}

func (s *LedgerService) MonthlyIncome() []MonthlyIncome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SummarizeMonthlyIncome(s.transactions)
}

// --- budget limits -----------------------------------------------------

// SetBudgetLimit sets the spending ceiling for a budget category. The
// reserved Dues Collection category is not budgetable.
func (s *LedgerService) SetBudgetLimit(ctx context.Context, category string, amount decimal.Decimal) error {
	if category == core.DuesCollection || !core.KnownCategory(category) {
		return fmt.Errorf("category %q: %w", category, core.ErrInvalidCategory)
	}
	if amount.IsNegative() {
		return core.ErrNegativeAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.budgetLimits[category]
	s.budgetLimits[category] = amount
	if err := s.saveBudgetLimits(); err != nil {
		if had {
			s.budgetLimits[category] = prev
		} else {
			delete(s.budgetLimits, category)
		}
		return err
	}

	s.publish(ctx, DocBudgetLimits, "update")
	return nil
}

func (s *LedgerService) BudgetLimit(category string) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.budgetLimits[category]
}

// --- semesters ---------------------------------------------------------

func (s *LedgerService) CurrentSemester() (core.Semester, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id := s.currentSemesterIDLocked()
	sem, ok := s.semesters[id]
	return sem, ok
}

// currentSemesterIDLocked prefers the semester flagged current, falling back
// to the latest by year.
func (s *LedgerService) currentSemesterIDLocked() string {
	for id, sem := range s.semesters {
		if sem.IsCurrent {
			return id
		}
	}
	latest := ""
	year := 0
	for id, sem := range s.semesters {
		if sem.Year >= year {
			latest, year = id, sem.Year
		}
	}
	return latest
}

func defaultSemester(now time.Time) core.Semester {
	season := "Summer"
	switch {
	case now.Month() >= time.August:
		season = "Fall"
	case now.Month() <= time.May:
		season = "Spring"
	}
	return core.Semester{
		ID:        fmt.Sprintf("%s_%d", strings.ToLower(season), now.Year()),
		Name:      fmt.Sprintf("%s %d", season, now.Year()),
		Year:      now.Year(),
		Season:    season,
		StartDate: now,
		IsCurrent: true,
	}
}

// --- reminders ---------------------------------------------------------

// ComposeReminder builds the reminder message for a member with the given
// outstanding balance. Message composition is the one piece of formatting the
// ledger owns; delivery belongs to the Notifier collaborator.
func ComposeReminder(m core.Member, balance decimal.Decimal) string {
	return fmt.Sprintf("Hi %s! Your dues balance is $%s. Please pay via Zelle or Venmo. Thanks!",
		m.Name, balance.StringFixed(2))
}

// RecordReminderCheck composes and hands off a reminder for every selected
// member with a positive balance, and returns how many were sent. A nil
// memberIDs selects all members. The daily worker and interactive callers
// share this entry point.
func (s *LedgerService) RecordReminderCheck(ctx context.Context, notifier notify.Notifier, memberIDs []string) int {
	s.mu.RLock()
	var selected []core.Member
	if memberIDs == nil {
		selected = s.membersLocked()
	} else {
		for _, id := range memberIDs {
			if m, ok := s.members[id]; ok {
				selected = append(selected, m)
			}
		}
	}
	s.mu.RUnlock()

	sent := 0
	for _, m := range selected {
		balance := Balance(m)
		if !balance.IsPositive() {
			continue
		}
		message := ComposeReminder(m, balance)
		if err := notifier.Send(ctx, m.Contact, m.ContactKind, message); err != nil {
			slog.ErrorContext(ctx, "Failed to send reminder",
				log.FieldMemberID, m.ID,
				log.FieldContactKind, m.ContactKind,
				log.FieldError, err)
			continue
		}
		sent++
	}

	slog.InfoContext(ctx, "Reminder check complete",
		"checked", len(selected),
		"sent", sent)
	return sent
}

// --- persistence helpers -----------------------------------------------

func (s *LedgerService) saveMembers() error {
	if err := s.store.Save(DocMembers, s.members); err != nil {
		return fmt.Errorf("save members: %w", err)
	}
	return nil
}

func (s *LedgerService) saveTransactions() error {
	if err := s.store.Save(DocTransactions, s.transactions); err != nil {
		return fmt.Errorf("save transactions: %w", err)
	}
	return nil
}

func (s *LedgerService) saveBudgetLimits() error {
	if err := s.store.Save(DocBudgetLimits, s.budgetLimits); err != nil {
		return fmt.Errorf("save budget limits: %w", err)
	}
	return nil
}

func (s *LedgerService) saveSemesters() error {
	if err := s.store.Save(DocSemesters, s.semesters); err != nil {
		return fmt.Errorf("save semesters: %w", err)
	}
	return nil
}

func (s *LedgerService) saveUsers() error {
	if err := s.store.Save(DocUsers, s.users); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

func (s *LedgerService) publish(ctx context.Context, document, action string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishDocumentChange(ctx, document, action); err != nil {
		slog.ErrorContext(ctx, "Failed to publish document change",
			log.FieldDocument, document,
			log.FieldAction, action,
			log.FieldError, err)
	}
}
