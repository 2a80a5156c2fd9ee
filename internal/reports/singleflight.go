package reports

import (
	"context"

	"github.com/odyssey-erp/finreports/internal/normalize"
)

// build collapses concurrent builds of the same key. A caller whose context ends
// stops waiting but the shared build keeps running for the others.
func (s *Service) build(ctx context.Context, key string, fn func(context.Context) (normalize.NormalizedReport, error)) (normalize.NormalizedReport, error, bool) {
	resultChan := s.group.DoChan(key, func() (interface{}, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return normalize.NormalizedReport{}, ctx.Err(), false
	case res := <-resultChan:
		report, _ := res.Val.(normalize.NormalizedReport)
		return report, res.Err, res.Shared
	}
}
