package harness

import (
	"context"
	"fmt"

	"github.com/roach88/docsql/internal/store"
)

// EvaluateAssertions checks every assertion against st and returns one
// message per failure.
func EvaluateAssertions(ctx context.Context, st *store.Store, assertions []Assertion) []string {
	var msgs []string
	for i, a := range assertions {
		if err := evaluate(ctx, st, a); err != nil {
			msgs = append(msgs, fmt.Sprintf("assertion %d (%s): %v", i+1, a.Type, err))
		}
	}
	return msgs
}

func evaluate(ctx context.Context, st *store.Store, a Assertion) error {
	switch a.Type {
	case AssertFinalCount:
		n, err := st.Count(ctx, a.Store)
		if err != nil {
			return err
		}
		if n != a.Count {
			return fmt.Errorf("expected %d records in %s, got %d", a.Count, a.Store, n)
		}
	case AssertFinalRecord:
		rec, found, err := st.Get(ctx, a.Store, a.Key)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%s %v is absent", a.Store, a.Key)
		}
		if !matchSubset(rec, a.Expect) {
			return fmt.Errorf("%s %v is %v, want %v", a.Store, a.Key, rec, a.Expect)
		}
	case AssertAbsent:
		_, found, err := st.Get(ctx, a.Store, a.Key)
		if err != nil {
			return err
		}
		if found {
			return fmt.Errorf("%s %v is present", a.Store, a.Key)
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
