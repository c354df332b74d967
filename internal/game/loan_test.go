package game

import (
	"errors"
	"testing"
)

func TestTakeLoan(t *testing.T) {
	s := NewGameState(nil, nil)
	next, q, err := TakeLoan(s, 20_000, 10)
	if err != nil {
		t.Fatalf("take loan: %v", err)
	}
	if q.InterestRate != 0.07 || q.TotalDue != 21_400 || q.DueTurn != 11 {
		t.Fatalf("unexpected quote: %+v", q)
	}
	if next.Balance != 30_000 || !next.Loan.Active || next.Loan.Amount != 21_400 {
		t.Fatalf("unexpected state: balance=%d loan=%+v", next.Balance, next.Loan)
	}
	if _, _, err := TakeLoan(next, 1000, 5); !errors.Is(err, ErrLoanActive) {
		t.Fatalf("second loan err=%v", err)
	}
}

func TestQuoteLoanValidation(t *testing.T) {
	s := NewGameState(nil, nil)
	tests := []struct {
		amount, term int64
		want         error
	}{
		{amount: 0, term: 5, want: ErrInvalidLoanAmount},
		{amount: 50_001, term: 5, want: ErrInvalidLoanAmount},
		{amount: 1000, term: 0, want: ErrInvalidLoanTerm},
		{amount: 1000, term: MaxLoanTermTurns + 1, want: ErrInvalidLoanTerm},
		{amount: 50_000, term: 1_000_000_000_000_000, want: ErrInvalidLoanTerm},
	}
	for _, tc := range tests {
		if _, err := QuoteLoan(s, tc.amount, tc.term); !errors.Is(err, tc.want) {
			t.Fatalf("%+v: err=%v", tc, err)
		}
	}
	q, err := QuoteLoan(s, 50_000, 4)
	if err != nil || q.TotalDue != 52_500 {
		t.Fatalf("quote=%+v err=%v", q, err)
	}
	q, err = QuoteLoan(s, 50_000, MaxLoanTermTurns)
	if err != nil || q.TotalDue != 62_500 || q.InterestRate != 0.25 || q.DueTurn != 101 {
		t.Fatalf("longest term quote=%+v err=%v", q, err)
	}
}

func TestPayLoan(t *testing.T) {
	s := NewGameState(nil, nil)
	if _, _, err := PayLoan(s); !errors.Is(err, ErrNoLoan) {
		t.Fatalf("no loan err=%v", err)
	}
	s, _, _ = TakeLoan(s, 20_000, 10)
	s.Balance = 100
	if _, _, err := PayLoan(s); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("insufficient err=%v", err)
	}
	s.Balance = 25_000
	next, paid, err := PayLoan(s)
	if err != nil || paid != 21_400 {
		t.Fatalf("pay: paid=%d err=%v", paid, err)
	}
	if next.Balance != 3600 || next.Loan.Active {
		t.Fatalf("unexpected state: balance=%d loan=%+v", next.Balance, next.Loan)
	}
}

func TestCheckLoanStatusOverdue(t *testing.T) {
	s := NewGameState(nil, nil)
	s.Loan = Loan{Active: true, Amount: 1000, Principal: 900, DueTurn: 5, InterestRate: 0.06, TermTurns: 4}

	s.Turn = 5
	if next, ev := CheckLoanStatus(s); ev != nil || next.Loan.Amount != 1000 {
		t.Fatalf("due turn should not penalise: ev=%v", ev)
	}

	s.Turn = 6
	next, ev := CheckLoanStatus(s)
	if ev == nil || ev.Kind != EventLoanPenalty || next.Loan.Amount != 1500 {
		t.Fatalf("first overdue turn: amount=%d ev=%v", next.Loan.Amount, ev)
	}

	s = next
	for turn := int64(7); turn <= 14; turn++ {
		s.Turn = turn
		s, ev = CheckLoanStatus(s)
		if ev == nil || ev.Kind != EventLoanPenalty {
			t.Fatalf("turn %d: ev=%v", turn, ev)
		}
	}
	if !s.Loan.Active {
		t.Fatalf("loan must stay active at 9 overdue turns")
	}

	owed := s.Loan.Amount
	balance := s.Balance
	s.Turn = 15
	s, ev = CheckLoanStatus(s)
	if ev == nil || ev.Kind != EventLoanDefault {
		t.Fatalf("default event missing: %v", ev)
	}
	if s.Loan.Active || s.Balance != balance-owed {
		t.Fatalf("default: balance=%d want %d loan=%+v", s.Balance, balance-owed, s.Loan)
	}
	if s.Loan.InterestRate != BaseInterestRate {
		t.Fatalf("loan not reset: %+v", s.Loan)
	}
}
