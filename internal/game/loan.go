package game

import "fmt"

const (
	baseRateBps       = int64(500)
	termPremiumBps    = int64(100)
	termPremiumPeriod = int64(5)
	bpsScale          = int64(10_000)
)

type LoanQuote struct {
	Amount       int64   `json:"amount"`
	TermTurns    int64   `json:"termTurns"`
	InterestRate float64 `json:"interestRate"`
	TotalDue     int64   `json:"totalDue"`
	DueTurn      int64   `json:"dueTurn"`
}

func defaultLoan() Loan {
	return Loan{InterestRate: BaseInterestRate}
}

// loanRateBps is 5% plus one point per full five turns of term.
func loanRateBps(termTurns int64) int64 {
	return baseRateBps + (termTurns/termPremiumPeriod)*termPremiumBps
}

// QuoteLoan prices a credit line without touching state.
func QuoteLoan(s GameState, amount, termTurns int64) (LoanQuote, error) {
	if amount <= 0 || amount > MaxLoanAmount {
		return LoanQuote{}, fmt.Errorf("%w: got %d", ErrInvalidLoanAmount, amount)
	}
	if termTurns < 1 || termTurns > MaxLoanTermTurns {
		return LoanQuote{}, fmt.Errorf("%w: got %d", ErrInvalidLoanTerm, termTurns)
	}
	bps := loanRateBps(termTurns)
	return LoanQuote{
		Amount:       amount,
		TermTurns:    termTurns,
		InterestRate: float64(bps) / float64(bpsScale),
		TotalDue:     amount * (bpsScale + bps) / bpsScale,
		DueTurn:      s.Turn + termTurns,
	}, nil
}

func TakeLoan(s GameState, amount, termTurns int64) (GameState, LoanQuote, error) {
	if s.ActiveTrade != nil {
		return s, LoanQuote{}, ErrTradeInProgress
	}
	q, err := QuoteLoan(s, amount, termTurns)
	if err != nil {
		return s, q, err
	}
	if s.Loan.Active {
		return s, q, ErrLoanActive
	}
	next := s.Clone()
	next.Balance += amount
	next.Loan = Loan{
		Active:       true,
		Amount:       q.TotalDue,
		Principal:    amount,
		DueTurn:      q.DueTurn,
		InterestRate: q.InterestRate,
		TermTurns:    termTurns,
	}
	next.addEvent(EventLoanTaken, s.Turn, fmt.Sprintf("borrowed %d, %d due on turn %d", amount, q.TotalDue, q.DueTurn), amount)
	return next, q, nil
}

func PayLoan(s GameState) (GameState, int64, error) {
	if s.ActiveTrade != nil {
		return s, 0, ErrTradeInProgress
	}
	if !s.Loan.Active {
		return s, 0, ErrNoLoan
	}
	due := s.Loan.Amount
	if s.Balance < due {
		return s, 0, fmt.Errorf("%w: owe %d, balance %d", ErrInsufficientFunds, due, s.Balance)
	}
	next := s.Clone()
	next.Balance -= due
	next.Loan = defaultLoan()
	next.addEvent(EventLoanPaid, s.Turn, fmt.Sprintf("repaid loan of %d", due), due)
	return next, due, nil
}

// CheckLoanStatus runs once per turn advance. Within the grace window the
// outstanding amount grows by half each turn; at the end of it the full amount is
// seized regardless of balance.
func CheckLoanStatus(s GameState) (GameState, *Event) {
	if !s.Loan.Active || s.Turn <= s.Loan.DueTurn {
		return s, nil
	}
	next := s.Clone()
	overdue := next.Turn - next.Loan.DueTurn
	if overdue >= LoanGraceTurns {
		seized := next.Loan.Amount
		next.Balance -= seized
		next.Loan = defaultLoan()
		ev := next.addEvent(EventLoanDefault, next.Turn, fmt.Sprintf("loan defaulted after %d overdue turns, %d seized", overdue, seized), seized)
		return next, &ev
	}
	penalty := next.Loan.Amount / 2
	next.Loan.Amount += penalty
	ev := next.addEvent(EventLoanPenalty, next.Turn, fmt.Sprintf("loan overdue %d turns, penalty %d", overdue, penalty), penalty)
	return next, &ev
}
