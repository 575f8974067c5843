package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/formboard/internal/service"
	"github.com/creamcroissant/formboard/internal/support/logging"
)

type stubForms struct {
	service.FormService
	calls   atomic.Int32
	updated int
	err     error
}

func (s *stubForms) RecountSubmissions(context.Context) (int, error) {
	s.calls.Add(1)
	return s.updated, s.err
}

func TestSubmissionCountJobRun(t *testing.T) {
	forms := &stubForms{updated: 2}
	j := NewSubmissionCountJob(forms, logging.Discard())

	require.NoError(t, j.Run(context.Background()))
	assert.Equal(t, int32(1), forms.calls.Load())
	assert.Equal(t, "submission_recount", j.Name())
}

func TestSubmissionCountJobError(t *testing.T) {
	forms := &stubForms{err: errors.New("db locked")}
	j := NewSubmissionCountJob(forms, logging.Discard())

	err := j.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db locked")
}

func TestSubmissionCountJobRequiresService(t *testing.T) {
	j := NewSubmissionCountJob(nil, nil)
	require.Error(t, j.Run(context.Background()))
}

func TestSchedulerRegisterValidation(t *testing.T) {
	s := NewScheduler(logging.Discard())

	_, err := s.Register("@every 1m", nil)
	require.Error(t, err)
	_, err = s.Register("", NewSubmissionCountJob(&stubForms{}, nil))
	require.Error(t, err)
	_, err = s.Register("not a spec", NewSubmissionCountJob(&stubForms{}, nil))
	require.Error(t, err)

	_, err = s.Register("@every 1m", NewSubmissionCountJob(&stubForms{}, nil))
	require.NoError(t, err)
	_, err = s.Register("@every 5m", NewSubmissionCountJob(&stubForms{}, nil))
	assert.ErrorContains(t, err, "already registered")
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	s := NewScheduler(logging.Discard())
	select {
	case <-s.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("stop on an idle scheduler should not block")
	}
}

func TestSchedulerRunsRegisteredJob(t *testing.T) {
	s := NewScheduler(logging.Discard())
	forms := &stubForms{}
	_, err := s.Register("@every 1s", NewSubmissionCountJob(forms, nil))
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool { return forms.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	<-s.Stop().Done()
}

func TestSchedulerRunNow(t *testing.T) {
	s := NewScheduler(logging.Discard())
	forms := &stubForms{}

	require.NoError(t, s.RunNow(context.Background(), NewSubmissionCountJob(forms, nil)))
	assert.Equal(t, int32(1), forms.calls.Load())
	require.Error(t, s.RunNow(context.Background(), nil))
}
