package app

import (
	"context"
	"sync"

	"github.com/algrsh400-debug/ser/internal/ports"
)

// session memoizes the account and position fetches for the lifetime of one
// request, so an operation needing both never calls the exchange twice. A
// fresh session is created per request and must not outlive it.
type session struct {
	client ports.FuturesClient

	accountOnce sync.Once
	account     *ports.AccountInfo
	accountErr  error

	positionsOnce sync.Once
	positions     []ports.PositionRisk
	positionsErr  error
}

func (s *session) accountInfo(ctx context.Context) (*ports.AccountInfo, error) {
	s.accountOnce.Do(func() {
		s.account, s.accountErr = s.client.Account(ctx)
	})
	return s.account, s.accountErr
}

func (s *session) positionRisk(ctx context.Context) ([]ports.PositionRisk, error) {
	s.positionsOnce.Do(func() {
		s.positions, s.positionsErr = s.client.PositionRisk(ctx)
	})
	return s.positions, s.positionsErr
}

// fetchBoth runs the account and position fetches concurrently and joins
// them, returning the first error.
func (s *session) fetchBoth(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = s.positionRisk(ctx)
	}()
	_, accErr := s.accountInfo(ctx)
	wg.Wait()

	if accErr != nil {
		return accErr
	}
	_, posErr := s.positionRisk(ctx)
	return posErr
}

// openPositions returns the position rows with nonzero quantity.
func (s *session) openPositions(ctx context.Context) ([]ports.PositionRisk, error) {
	rows, err := s.positionRisk(ctx)
	if err != nil {
		return nil, err
	}
	open := make([]ports.PositionRisk, 0, len(rows))
	for _, row := range rows {
		if row.PositionAmt != 0 {
			open = append(open, row)
		}
	}
	return open, nil
}

// leverageBySymbol builds the per-symbol leverage lookup from the account
// rows. Symbols missing from the map default to 1 at the call site.
func (s *session) leverageBySymbol(ctx context.Context) (map[string]int, error) {
	acct, err := s.accountInfo(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(acct.Positions))
	for _, p := range acct.Positions {
		if p.Leverage > 0 {
			out[p.Symbol] = p.Leverage
		}
	}
	return out, nil
}
