package tx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus/internal/core/apperror"
)

// fakeSession records every lifecycle call so tests can assert the
// exact begin/commit/rollback/savepoint sequence.
type fakeSession struct {
	id    int
	calls []string
	begin BeginOptions
	inTx  bool

	beginErr  error
	commitErr error

	unsupported map[IsolationLevel]bool
}

func (s *fakeSession) Begin(ctx context.Context, opts BeginOptions) error {
	if s.beginErr != nil {
		return s.beginErr
	}
	s.calls = append(s.calls, "begin")
	s.begin = opts
	s.inTx = true
	return nil
}

func (s *fakeSession) Commit(ctx context.Context) error {
	if s.commitErr != nil {
		return s.commitErr
	}
	s.calls = append(s.calls, "commit")
	s.inTx = false
	return nil
}

func (s *fakeSession) Rollback(ctx context.Context) error {
	s.calls = append(s.calls, "rollback")
	s.inTx = false
	return nil
}

func (s *fakeSession) Savepoint(ctx context.Context, name string) error {
	s.calls = append(s.calls, "savepoint "+name)
	return nil
}

func (s *fakeSession) ReleaseSavepoint(ctx context.Context, name string) error {
	s.calls = append(s.calls, "release "+name)
	return nil
}

func (s *fakeSession) RollbackToSavepoint(ctx context.Context, name string) error {
	s.calls = append(s.calls, "rollback_to "+name)
	return nil
}

func (s *fakeSession) SupportsIsolation(l IsolationLevel) bool {
	return !s.unsupported[l]
}

// fakeProvider hands out numbered fake sessions and tracks releases.
type fakeProvider struct {
	mu         sync.Mutex
	sessions   []*fakeSession
	released   []*fakeSession
	acquireErr error

	unsupported map[IsolationLevel]bool
}

func (p *fakeProvider) Acquire(ctx context.Context) (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	s := &fakeSession{id: len(p.sessions) + 1, unsupported: p.unsupported}
	p.sessions = append(p.sessions, s)
	return s, nil
}

func (p *fakeProvider) Release(ctx context.Context, s Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = append(p.released, s.(*fakeSession))
	return nil
}

func newTestManager() (*Manager, *fakeProvider) {
	p := &fakeProvider{}
	return NewManager(p), p
}

func TestRun_Required_NoAmbient_CommitsAndReleases(t *testing.T) {
	m, p := newTestManager()

	var sawActive bool
	err := m.Run(context.Background(), func(ctx context.Context) error {
		sawActive = IsActive(ctx)
		return nil
	})

	require.NoError(t, err)
	assert.True(t, sawActive)
	require.Len(t, p.sessions, 1)
	assert.Equal(t, []string{"begin", "commit"}, p.sessions[0].calls)
	require.Len(t, p.released, 1)
	assert.Same(t, p.sessions[0], p.released[0])
}

func TestRun_Required_ErrorRollsBack(t *testing.T) {
	m, p := newTestManager()
	boom := errors.New("boom")

	err := m.Run(context.Background(), func(ctx context.Context) error {
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"begin", "rollback"}, p.sessions[0].calls)
	assert.Len(t, p.released, 1)
}

func TestRun_Required_AmbientJoinsViaSavepoint(t *testing.T) {
	m, p := newTestManager()

	err := m.Run(context.Background(), func(outer context.Context) error {
		outerSess, err := Current(outer)
		require.NoError(t, err)

		return m.Run(outer, func(inner context.Context) error {
			innerSess, err := Current(inner)
			require.NoError(t, err)
			assert.Same(t, outerSess, innerSess)

			frame, ok := From(inner)
			require.True(t, ok)
			assert.Equal(t, 1, frame.Depth())
			assert.Equal(t, "sp_1", frame.Savepoint())
			return nil
		})
	})

	require.NoError(t, err)
	require.Len(t, p.sessions, 1)
	assert.Equal(t,
		[]string{"begin", "savepoint sp_1", "release sp_1", "commit"},
		p.sessions[0].calls)
}

func TestRun_Required_NestedFailureKeepsParentCommittable(t *testing.T) {
	m, p := newTestManager()
	inner := errors.New("inner failed")

	err := m.Run(context.Background(), func(ctx context.Context) error {
		if nestedErr := m.Run(ctx, func(ctx context.Context) error {
			return inner
		}); nestedErr != nil {
			// Caught and handled: the outer transaction goes on.
			assert.ErrorIs(t, nestedErr, inner)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t,
		[]string{"begin", "savepoint sp_1", "rollback_to sp_1", "commit"},
		p.sessions[0].calls)
}

func TestRun_Required_DeepNestingNumbersSavepoints(t *testing.T) {
	m, p := newTestManager()

	err := m.Run(context.Background(), func(ctx context.Context) error {
		return m.Run(ctx, func(ctx context.Context) error {
			return m.Run(ctx, func(ctx context.Context) error {
				frame, _ := From(ctx)
				assert.Equal(t, 2, frame.Depth())
				return nil
			})
		})
	})

	require.NoError(t, err)
	assert.Equal(t,
		[]string{"begin", "savepoint sp_1", "savepoint sp_2", "release sp_2", "release sp_1", "commit"},
		p.sessions[0].calls)
}

func TestRun_RequiresNew_IndependentSession(t *testing.T) {
	m, p := newTestManager()
	inner := errors.New("inner failed")

	err := m.Run(context.Background(), func(outer context.Context) error {
		outerSess, _ := Current(outer)

		nestedErr := m.Run(outer, func(ctx context.Context) error {
			innerSess, err := Current(ctx)
			require.NoError(t, err)
			assert.NotSame(t, outerSess, innerSess)
			return inner
		}, WithPropagation(RequiresNew))
		assert.ErrorIs(t, nestedErr, inner)

		// Ambient state restored: still the outer session.
		sess, err := Current(outer)
		require.NoError(t, err)
		assert.Same(t, outerSess, sess)
		return nil
	})

	require.NoError(t, err)
	require.Len(t, p.sessions, 2)
	assert.Equal(t, []string{"begin", "commit"}, p.sessions[0].calls)
	assert.Equal(t, []string{"begin", "rollback"}, p.sessions[1].calls)
	assert.Len(t, p.released, 2)
}

func TestRun_RequiresNew_WithoutAmbient(t *testing.T) {
	m, p := newTestManager()

	err := m.Run(context.Background(), func(ctx context.Context) error {
		assert.True(t, IsActive(ctx))
		return nil
	}, WithPropagation(RequiresNew))

	require.NoError(t, err)
	require.Len(t, p.sessions, 1)
	assert.Equal(t, []string{"begin", "commit"}, p.sessions[0].calls)
}

func TestRun_Mandatory_NoAmbientFails(t *testing.T) {
	m, p := newTestManager()

	ran := false
	err := m.Run(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	}, WithPropagation(Mandatory))

	require.ErrorIs(t, err, ErrTransactionRequired)
	assert.False(t, ran)
	assert.Empty(t, p.sessions, "no session must be acquired")
}

func TestRun_Mandatory_JoinsWithoutSavepoint(t *testing.T) {
	m, p := newTestManager()

	err := m.Run(context.Background(), func(outer context.Context) error {
		outerSess, _ := Current(outer)
		return m.Run(outer, func(ctx context.Context) error {
			sess, err := Current(ctx)
			require.NoError(t, err)
			assert.Same(t, outerSess, sess)
			return nil
		}, WithPropagation(Mandatory))
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"begin", "commit"}, p.sessions[0].calls)
}

func TestRun_Never_AmbientFails(t *testing.T) {
	m, _ := newTestManager()

	err := m.Run(context.Background(), func(outer context.Context) error {
		ran := false
		nestedErr := m.Run(outer, func(ctx context.Context) error {
			ran = true
			return nil
		}, WithPropagation(Never))
		assert.ErrorIs(t, nestedErr, ErrTransactionNotAllowed)
		assert.False(t, ran)
		return nil
	})
	require.NoError(t, err)
}

func TestRun_Never_NoAmbientRunsPlain(t *testing.T) {
	m, p := newTestManager()

	err := m.Run(context.Background(), func(ctx context.Context) error {
		assert.False(t, IsActive(ctx))
		return nil
	}, WithPropagation(Never))

	require.NoError(t, err)
	assert.Empty(t, p.sessions)
}

func TestRun_Supports_JoinsOrRunsPlain(t *testing.T) {
	m, p := newTestManager()

	// Without ambient: no transaction is opened.
	err := m.Run(context.Background(), func(ctx context.Context) error {
		assert.False(t, IsActive(ctx))
		return nil
	}, WithPropagation(Supports))
	require.NoError(t, err)
	assert.Empty(t, p.sessions)

	// With ambient: joins the existing one.
	err = m.Run(context.Background(), func(outer context.Context) error {
		outerSess, _ := Current(outer)
		return m.Run(outer, func(ctx context.Context) error {
			sess, err := Current(ctx)
			require.NoError(t, err)
			assert.Same(t, outerSess, sess)
			return nil
		}, WithPropagation(Supports))
	})
	require.NoError(t, err)
	require.Len(t, p.sessions, 1)
	assert.Equal(t, []string{"begin", "commit"}, p.sessions[0].calls)
}

func TestRun_NotSupported_DetachesAndRestores(t *testing.T) {
	m, p := newTestManager()

	err := m.Run(context.Background(), func(outer context.Context) error {
		nestedErr := m.Run(outer, func(ctx context.Context) error {
			assert.False(t, IsActive(ctx))
			_, err := Current(ctx)
			assert.ErrorIs(t, err, ErrNoTransaction)
			return nil
		}, WithPropagation(NotSupported))
		require.NoError(t, nestedErr)

		assert.True(t, IsActive(outer), "outer transaction must survive the detour")
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"begin", "commit"}, p.sessions[0].calls)
}

func TestRun_NoRollbackOn_CommitsDespiteError(t *testing.T) {
	m, p := newTestManager()
	tolerated := errors.New("tolerated")

	err := m.Run(context.Background(), func(ctx context.Context) error {
		return fmt.Errorf("wrapped: %w", tolerated)
	}, NoRollbackOn(On(tolerated)))

	require.ErrorIs(t, err, tolerated, "the error still reaches the caller")
	assert.Equal(t, []string{"begin", "commit"}, p.sessions[0].calls)
}

func TestRun_NoRollbackOn_WinsOverRollbackOn(t *testing.T) {
	m, p := newTestManager()
	boom := errors.New("boom")

	err := m.Run(context.Background(), func(ctx context.Context) error {
		return boom
	}, RollbackOn(On(boom)), NoRollbackOn(On(boom)))

	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"begin", "commit"}, p.sessions[0].calls)
}

func TestRun_NoRollbackOn_NestedReleasesSavepoint(t *testing.T) {
	m, p := newTestManager()
	tolerated := apperror.NewBusinessRule(apperror.CodeBusinessRule, "seats exhausted")

	err := m.Run(context.Background(), func(ctx context.Context) error {
		nestedErr := m.Run(ctx, func(ctx context.Context) error {
			return tolerated
		}, NoRollbackOn(OnCode(apperror.CodeBusinessRule)))
		assert.ErrorIs(t, nestedErr, tolerated)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t,
		[]string{"begin", "savepoint sp_1", "release sp_1", "commit"},
		p.sessions[0].calls)
}

func TestRun_MarkRollbackOnly_TopLevel(t *testing.T) {
	m, p := newTestManager()

	err := m.Run(context.Background(), func(ctx context.Context) error {
		return MarkRollbackOnly(ctx)
	})

	require.NoError(t, err, "a marked frame rolls back without surfacing an error")
	assert.Equal(t, []string{"begin", "rollback"}, p.sessions[0].calls)
}

func TestRun_MarkRollbackOnly_NestedOnly(t *testing.T) {
	m, p := newTestManager()

	err := m.Run(context.Background(), func(ctx context.Context) error {
		return m.Run(ctx, func(ctx context.Context) error {
			return MarkRollbackOnly(ctx)
		})
	})

	require.NoError(t, err)
	// Only the nested frame is discarded, the parent commits.
	assert.Equal(t,
		[]string{"begin", "savepoint sp_1", "rollback_to sp_1", "commit"},
		p.sessions[0].calls)
}

func TestMarkRollbackOnly_NoTransaction(t *testing.T) {
	err := MarkRollbackOnly(context.Background())
	assert.ErrorIs(t, err, ErrNoTransaction)
}

func TestRun_Timeout_ExpiredBodyRollsBack(t *testing.T) {
	m, p := newTestManager()

	err := m.Run(context.Background(), func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	}, WithTimeout(10*time.Millisecond))

	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, []string{"begin", "rollback"}, p.sessions[0].calls)
}

func TestRun_Timeout_FastBodyCommits(t *testing.T) {
	m, p := newTestManager()

	err := m.Run(context.Background(), func(ctx context.Context) error {
		return nil
	}, WithTimeout(time.Second))

	require.NoError(t, err)
	assert.Equal(t, []string{"begin", "commit"}, p.sessions[0].calls)
}

func TestRun_Timeout_BodyErrorWins(t *testing.T) {
	m, _ := newTestManager()
	boom := errors.New("boom")

	// The deadline may expire while fn is failing for its own reasons;
	// the genuine error must not be masked by ErrTimeout.
	err := m.Run(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return boom
	}, WithTimeout(5*time.Millisecond))

	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestRun_Timeout_PassedToBeginOptions(t *testing.T) {
	m, p := newTestManager()

	err := m.Run(context.Background(), func(ctx context.Context) error {
		return nil
	}, WithTimeout(time.Second))

	require.NoError(t, err)
	assert.Equal(t, time.Second, p.sessions[0].begin.StatementTimeout)
}

func TestRun_IsolationAndReadOnly_AppliedOnNewOnly(t *testing.T) {
	m, p := newTestManager()

	err := m.Run(context.Background(), func(ctx context.Context) error {
		return m.Run(ctx, func(ctx context.Context) error {
			return nil
		}, WithIsolation(ReadUncommitted))
	}, WithIsolation(Serializable), WithReadOnly())

	require.NoError(t, err)
	require.Len(t, p.sessions, 1)
	// Only the outer Begin happened, with the outer settings; the
	// nested call's isolation request was ignored.
	assert.Equal(t, Serializable, p.sessions[0].begin.Isolation)
	assert.True(t, p.sessions[0].begin.ReadOnly)
}

func TestRun_UnsupportedIsolationDropped(t *testing.T) {
	p := &fakeProvider{unsupported: map[IsolationLevel]bool{Serializable: true}}
	m := NewManager(p)

	err := m.Run(context.Background(), func(ctx context.Context) error {
		return nil
	}, WithIsolation(Serializable))

	require.NoError(t, err)
	assert.Equal(t, IsolationDefault, p.sessions[0].begin.Isolation)
	assert.Equal(t, []string{"begin", "commit"}, p.sessions[0].calls)
}

func TestRun_AcquireFailure(t *testing.T) {
	p := &fakeProvider{acquireErr: errors.New("pool exhausted")}
	m := NewManager(p)

	err := m.Run(context.Background(), func(ctx context.Context) error {
		t.Fatal("body must not run without a session")
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "acquire session")
}

func TestRun_BeginFailureReleasesSession(t *testing.T) {
	boom := errors.New("connection reset")
	p := &poisonedProvider{beginErr: boom}
	m := NewManager(p)

	err := m.Run(context.Background(), func(ctx context.Context) error {
		t.Fatal("body must not run when begin fails")
		return nil
	})

	require.ErrorIs(t, err, boom)
	assert.True(t, p.releasedLast, "session must be released when begin fails")
}

type poisonedProvider struct {
	beginErr     error
	releasedLast bool
}

func (p *poisonedProvider) Acquire(ctx context.Context) (Session, error) {
	return &fakeSession{beginErr: p.beginErr}, nil
}

func (p *poisonedProvider) Release(ctx context.Context, s Session) error {
	p.releasedLast = true
	return nil
}

func TestRun_CommitFailureSurfaces(t *testing.T) {
	p := &commitFailProvider{}
	m := NewManager(p)

	err := m.Run(context.Background(), func(ctx context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit transaction")
}

type commitFailProvider struct{ released bool }

func (p *commitFailProvider) Acquire(ctx context.Context) (Session, error) {
	return &fakeSession{commitErr: errors.New("commit refused")}, nil
}

func (p *commitFailProvider) Release(ctx context.Context, s Session) error {
	p.released = true
	return nil
}

func TestRun_ConcurrentChainsAreIndependent(t *testing.T) {
	m, p := newTestManager()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.Run(context.Background(), func(ctx context.Context) error {
				return m.Run(ctx, func(ctx context.Context) error { return nil })
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Len(t, p.sessions, 8, "each chain gets its own session")
	assert.Len(t, p.released, 8)
}

func TestWrap_ReturnsValue(t *testing.T) {
	m, p := newTestManager()

	load := Wrap(m, func(ctx context.Context) (string, error) {
		assert.True(t, IsActive(ctx))
		return "hello", nil
	}, WithReadOnly())

	got, err := load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.True(t, p.sessions[0].begin.ReadOnly)
}

func TestWrap_ZeroValueOnError(t *testing.T) {
	m, _ := newTestManager()
	boom := errors.New("boom")

	load := Wrap(m, func(ctx context.Context) (int, error) {
		return 42, boom
	})

	got, err := load(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Zero(t, got)
}

func TestCurrent_NoAmbient(t *testing.T) {
	sess, err := Current(context.Background())
	assert.Nil(t, sess)
	assert.ErrorIs(t, err, ErrNoTransaction)
	assert.False(t, IsActive(context.Background()))
}
