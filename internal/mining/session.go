package mining

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/model"
)

// ErrRunActive is returned by Start when the account already has a run in
// flight and Replace was not requested.
var ErrRunActive = eris.New("mining: a run is already active for this account")

// ErrNoRun is returned when an account has never started a run.
var ErrNoRun = eris.New("mining: no run for this account")

// StartOptions controls how Start treats an active run.
type StartOptions struct {
	// Replace cancels the active run and waits for its terminal event
	// before starting the new one.
	Replace bool
}

type activeRun struct {
	rc     RunContext
	cancel context.CancelFunc
	done   chan struct{}
	result Result
}

// Session enforces one active run per account and tracks each account's
// SearchState. Runs execute in background goroutines derived from the
// session's base context.
type Session struct {
	base  context.Context
	miner *Miner
	sink  Sink

	mu     sync.Mutex
	runs   map[string]*activeRun
	states map[string]model.SearchState
	wg     sync.WaitGroup
}

// NewSession creates a Session. Cancelling base stops every run.
func NewSession(base context.Context, miner *Miner, sink Sink) *Session {
	if sink == nil {
		sink = MultiSink(nil)
	}
	return &Session{
		base:   base,
		miner:  miner,
		sink:   sink,
		runs:   make(map[string]*activeRun),
		states: make(map[string]model.SearchState),
	}
}

// Start launches a run for rc.AccountID and returns the run context with
// its assigned ID.
func (s *Session) Start(ctx context.Context, rc RunContext, opts StartOptions) (RunContext, error) {
	if rc.AccountID == "" {
		return rc, eris.New("mining: account id is required")
	}
	if rc.RunID == "" {
		rc.RunID = uuid.New().String()
	}

	s.mu.Lock()
	prev := s.runs[rc.AccountID]
	if prev != nil && !isDone(prev) {
		if !opts.Replace {
			s.mu.Unlock()
			return rc, ErrRunActive
		}
		s.mu.Unlock()
		prev.cancel()
		select {
		case <-prev.done:
		case <-ctx.Done():
			return rc, eris.Wrap(ctx.Err(), "mining: wait for previous run")
		}
		s.mu.Lock()
		if cur := s.runs[rc.AccountID]; cur != prev && cur != nil && !isDone(cur) {
			s.mu.Unlock()
			return rc, ErrRunActive
		}
	}

	if st, ok := s.sink.(Starter); ok {
		if err := st.RunStarted(ctx, rc); err != nil {
			s.mu.Unlock()
			return rc, eris.Wrap(err, "mining: start run")
		}
	}

	runCtx, cancel := context.WithCancel(s.base)
	ar := &activeRun{rc: rc, cancel: cancel, done: make(chan struct{})}
	s.runs[rc.AccountID] = ar
	s.states[rc.AccountID] = model.SearchState{
		RunID:       rc.RunID,
		Query:       rc.Query,
		IsSearching: true,
		Status:      model.RunStatusRunning,
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer cancel()
		res := s.miner.Run(runCtx, rc, &stateSink{s: s, accountID: rc.AccountID, next: s.sink})
		s.mu.Lock()
		ar.result = res
		s.mu.Unlock()
		close(ar.done)
	}()

	zap.L().Debug("mining: session started run",
		zap.String("account_id", rc.AccountID),
		zap.String("run_id", rc.RunID),
	)
	return rc, nil
}

// Stop cancels the account's active run and waits for it to finish. It
// returns the final state; stopping an idle account is a no-op.
func (s *Session) Stop(ctx context.Context, accountID string) (model.SearchState, error) {
	s.mu.Lock()
	ar := s.runs[accountID]
	s.mu.Unlock()
	if ar == nil {
		return model.SearchState{}, ErrNoRun
	}

	ar.cancel()
	select {
	case <-ar.done:
	case <-ctx.Done():
		return s.State(accountID), eris.Wrap(ctx.Err(), "mining: wait for stop")
	}
	return s.State(accountID), nil
}

// Wait blocks until the account's current run finishes and returns its
// result.
func (s *Session) Wait(ctx context.Context, accountID string) (Result, error) {
	s.mu.Lock()
	ar := s.runs[accountID]
	s.mu.Unlock()
	if ar == nil {
		return Result{}, ErrNoRun
	}
	select {
	case <-ar.done:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return ar.result, nil
}

// State returns a snapshot of the account's search progress.
func (s *Session) State(accountID string) model.SearchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[accountID]
}

// Active reports whether the account has a run in flight.
func (s *Session) Active(accountID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ar := s.runs[accountID]
	return ar != nil && !isDone(ar)
}

// Shutdown cancels every run and waits for all of them to finish.
func (s *Session) Shutdown() {
	s.mu.Lock()
	for _, ar := range s.runs {
		ar.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func isDone(ar *activeRun) bool {
	select {
	case <-ar.done:
		return true
	default:
		return false
	}
}

// stateSink keeps the session's SearchState in step with the run before
// forwarding events.
type stateSink struct {
	s         *Session
	accountID string
	next      Sink
}

func (ss *stateSink) update(runID string, fn func(*model.SearchState)) {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	st := ss.s.states[ss.accountID]
	if st.RunID != runID {
		return
	}
	fn(&st)
	ss.s.states[ss.accountID] = st
}

func (ss *stateSink) LeadsAppended(runID string, leads []model.Lead) {
	ss.next.LeadsAppended(runID, leads)
}

func (ss *stateSink) Progress(runID string, batch, total int) {
	ss.update(runID, func(st *model.SearchState) {
		st.BatchesCompleted = batch
		st.TotalLeads = total
	})
	ss.next.Progress(runID, batch, total)
}

func (ss *stateSink) Terminal(runID string, out Outcome) {
	ss.update(runID, func(st *model.SearchState) {
		st.IsSearching = false
		st.Status = out.Reason
		st.BatchesCompleted = out.Batches
		st.TotalLeads = out.TotalLeads
		if out.Reason == model.RunStatusFailed || out.Reason == model.RunStatusOutOfCredits {
			st.Error = out.Message
		}
	})
	ss.next.Terminal(runID, out)
}
