package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/goccy/go-json"

	"github.com/roach88/docsql/internal/codec"
	"github.com/roach88/docsql/internal/query"
	"github.com/roach88/docsql/internal/schema"
	"github.com/roach88/docsql/internal/store"
	"github.com/roach88/docsql/internal/txn"
	"github.com/roach88/docsql/internal/value"
)

// Harness executes scenario steps against one store.
type Harness struct {
	store  *store.Store
	result *Result
	step   int
}

// Run executes a scenario in a fresh in-memory database and returns the
// result. The error is non-nil only when the scenario could not run at all.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	prefix := scenario.KeyPrefix
	if prefix == "" {
		prefix = "k"
	}
	reg, err := schema.NewRegistry(scenario.Schema, schema.NewSequenceKeys(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}

	st, err := store.Open(ctx, reg, store.Config{
		Path:   ":memory:",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{store: st, result: NewResult()}
	for _, step := range scenario.Flow {
		h.execute(ctx, step)
	}

	for _, msg := range EvaluateAssertions(ctx, st, scenario.Assertions) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

// execute runs one top-level step and records its event.
func (h *Harness) execute(ctx context.Context, step Step) {
	h.step++
	n := h.step
	if step.Op == OpBatch {
		h.executeBatch(ctx, n, step)
		return
	}
	ev := h.perform(ctx, step, nil)
	ev.Step = n
	h.record(ev, step)
}

func (h *Harness) executeBatch(ctx context.Context, n int, step Step) {
	mode := txn.ReadWrite
	if step.Mode == "read_only" {
		mode = txn.ReadOnly
	}
	scope := fmt.Sprintf("batch%d", n)
	tok := txn.NewToken(scope)

	// The batch event precedes its sub-steps in the trace.
	at := len(h.result.Trace)
	h.result.Trace = append(h.result.Trace, TraceEvent{Step: n, Op: OpBatch})

	err := h.store.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, sub := range step.Steps {
			h.step++
			ev := h.perform(ctx, sub, tok)
			ev.Step = h.step
			ev.Scope = scope
			h.record(ev, sub)
		}
		if step.Fail != "" {
			return errors.New(step.Fail)
		}
		return nil
	}, mode, tok)

	ev := &h.result.Trace[at]
	ev.Error = errorKind(err)
	h.check(*ev, step)
	if tok.Active() {
		h.result.AddError(fmt.Sprintf("step %d (batch): token still bound after the batch", n))
	}
}

// perform runs step, through tok's transaction when tok is set.
func (h *Harness) perform(ctx context.Context, step Step, tok *txn.Token) TraceEvent {
	ev := TraceEvent{Op: step.Op, Store: step.Store}
	st := h.store

	switch step.Op {
	case OpPut:
		keys, err := h.put(ctx, step, tok)
		ev.Keys = keyValues(keys)
		ev.Error = errorKind(err)

	case OpGet:
		ev.Key = step.Key
		var (
			rec   codec.Record
			found bool
			err   error
		)
		if tok != nil {
			rec, found, err = st.GetInTransaction(ctx, tok, step.Store, step.Key)
		} else {
			rec, found, err = st.Get(ctx, step.Store, step.Key)
		}
		ev.Error = errorKind(err)
		if err == nil {
			ev.Found = &found
			if found {
				ev.Records = []codec.Record{rec}
			}
		}

	case OpDelete:
		ev.Key = step.Key
		var err error
		if tok != nil {
			err = st.ClearInTransaction(ctx, tok, step.Store, step.Key)
		} else {
			err = st.Delete(ctx, step.Store, step.Key)
		}
		ev.Error = errorKind(err)

	case OpCount:
		n, err := st.Count(ctx, step.Store)
		ev.Error = errorKind(err)
		if err == nil {
			ev.Count = &n
		}

	case OpQuery:
		res, err := st.Query(ctx, buildQuery(step))
		ev.Error = errorKind(err)
		if err == nil {
			ev.Records = res.Records
		}

	case OpClear:
		var err error
		if step.Store == "" {
			err = st.Clear(ctx)
		} else {
			err = st.ClearStore(ctx, step.Store)
		}
		ev.Error = errorKind(err)
	}
	return ev
}

func (h *Harness) put(ctx context.Context, step Step, tok *txn.Token) ([]value.Value, error) {
	recs := make([]codec.Record, len(step.Records))
	for i, r := range step.Records {
		recs[i] = codec.Record(r)
	}
	st := h.store
	switch {
	case tok != nil:
		keys := make([]value.Value, len(recs))
		var first error
		for i, rec := range recs {
			k, err := st.PutInTransaction(ctx, tok, step.Store, rec)
			if err != nil && first == nil {
				first = err
			}
			keys[i] = k
		}
		return keys, first
	case step.Key != nil:
		k, err := st.PutWithKey(ctx, step.Store, step.Key, recs[0])
		return []value.Value{k}, err
	default:
		return st.Put(ctx, step.Store, recs...)
	}
}

// record appends ev to the trace and checks the step's expectations.
func (h *Harness) record(ev TraceEvent, step Step) {
	h.result.Trace = append(h.result.Trace, ev)
	h.check(ev, step)
}

func (h *Harness) check(ev TraceEvent, step Step) {
	for _, msg := range checkExpect(ev, step.Expect) {
		h.result.AddError(fmt.Sprintf("step %d (%s): %s", ev.Step, ev.Op, msg))
	}
}

func buildQuery(step Step) query.Query {
	q := query.Query{
		Store:  step.Store,
		Limit:  step.Limit,
		Offset: step.Offset,
	}
	if step.From != nil || step.To != nil {
		q.Range = query.Bound(step.From, step.To, step.FromOpen, step.ToOpen)
	}
	if len(step.Where) > 0 {
		where := normalize(step.Where).(map[string]any)
		q.Filter = func(rec codec.Record) bool {
			for field, want := range where {
				if !reflect.DeepEqual(normalize(rec[field]), want) {
					return false
				}
			}
			return true
		}
	}
	return q
}

func checkExpect(ev TraceEvent, want *Expect) []string {
	if want == nil {
		if ev.Error != "" {
			return []string{fmt.Sprintf("unexpected error %q", ev.Error)}
		}
		return nil
	}

	var msgs []string
	if ev.Error != want.Error {
		msgs = append(msgs, fmt.Sprintf("expected error %q, got %q", want.Error, ev.Error))
	}
	if want.Keys != nil && !equalJSON(want.Keys, ev.Keys) {
		msgs = append(msgs, fmt.Sprintf("expected keys %v, got %v", want.Keys, ev.Keys))
	}
	if want.Found != nil && (ev.Found == nil || *ev.Found != *want.Found) {
		msgs = append(msgs, fmt.Sprintf("expected found=%t", *want.Found))
	}
	if want.Record != nil {
		if len(ev.Records) == 0 {
			msgs = append(msgs, "expected a record, got none")
		} else if !matchSubset(ev.Records[0], want.Record) {
			msgs = append(msgs, fmt.Sprintf("record %v does not match %v", ev.Records[0], want.Record))
		}
	}
	if want.Records != nil && !equalJSON(want.Records, ev.Records) {
		msgs = append(msgs, fmt.Sprintf("expected records %v, got %v", want.Records, ev.Records))
	}
	if want.Count != nil && (ev.Count == nil || *ev.Count != *want.Count) {
		got := "none"
		if ev.Count != nil {
			got = fmt.Sprint(*ev.Count)
		}
		msgs = append(msgs, fmt.Sprintf("expected count %d, got %s", *want.Count, got))
	}
	return msgs
}

// errorKind names the class of err for traces and expectations.
func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, schema.ErrUnknownStore):
		return "unknown_store"
	case errors.Is(err, value.ErrMismatch):
		return "type_mismatch"
	case errors.Is(err, txn.ErrScopeViolation):
		return "scope_violation"
	case errors.Is(err, txn.ErrReadOnly):
		return "read_only"
	case errors.Is(err, query.ErrInvalidQuery):
		return "invalid_query"
	case errors.Is(err, txn.ErrBackend):
		return "backend"
	default:
		return "error"
	}
}

func keyValues(keys []value.Value) []any {
	if keys == nil {
		return nil
	}
	out := make([]any, len(keys))
	for i, k := range keys {
		if k != nil {
			out[i] = k.Any()
		}
	}
	return out
}

// normalize round-trips v through JSON so that YAML integers and decoded
// floats compare equal.
func normalize(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

func equalJSON(want, got any) bool {
	return reflect.DeepEqual(normalize(want), normalize(got))
}

// matchSubset reports whether every field of want is present in got with an
// equal value.
func matchSubset(got codec.Record, want map[string]any) bool {
	for field, w := range want {
		g, ok := got[field]
		if !ok || !equalJSON(w, g) {
			return false
		}
	}
	return true
}
