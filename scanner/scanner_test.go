package scanner_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"github.com/srg/beacond/internal/link"
	"github.com/srg/beacond/internal/queue"
	"github.com/srg/beacond/internal/radio"
	"github.com/srg/beacond/internal/stats"
	"github.com/srg/beacond/scanner"
)

type ScannerTestSuite struct {
	suite.Suite
	radio  *fakeRadio
	gate   *link.Gate
	queue  *queue.SightingQueue
	logger *logrus.Logger
}

func (suite *ScannerTestSuite) SetupTest() {
	suite.logger = logrus.New()
	suite.logger.SetLevel(logrus.WarnLevel)
	suite.radio = &fakeRadio{}
	suite.gate = link.NewGate(link.GateOptions{Backoff: link.FixedBackoff{Interval: time.Hour}}, suite.logger)

	q, err := queue.NewSightingQueue(10)
	suite.Require().NoError(err)
	suite.queue = q
}

func (suite *ScannerTestSuite) newScanner(opts scanner.Options) *scanner.Scanner {
	s, err := scanner.NewScanner(opts, suite.radio, suite.queue, suite.gate, stats.New(), suite.logger)
	suite.Require().NoError(err)
	return s
}

func fastOptions() scanner.Options {
	opts := scanner.DefaultOptions()
	opts.Interval = 40 * time.Millisecond
	opts.Window = 20 * time.Millisecond
	return opts
}

func (suite *ScannerTestSuite) TestDefaultOptions() {
	opts := scanner.DefaultOptions()
	suite.Equal(8*time.Second, opts.Interval)
	suite.Equal(2*time.Second, opts.Window)
	suite.Equal(uint8(1), opts.DeviceID)
	suite.Equal(20, opts.DedupCapacity)
	suite.False(opts.PauseOnLinkLoss)
	suite.NoError(opts.Validate())
}

func (suite *ScannerTestSuite) TestOptionsValidation() {
	tests := []struct {
		name    string
		mutate  func(o *scanner.Options)
		wantErr string
	}{
		{"zero window", func(o *scanner.Options) { o.Window = 0 }, "window must be positive"},
		{"interval shorter than window", func(o *scanner.Options) { o.Interval = time.Second }, "shorter than the scan window"},
		{"negative dedup", func(o *scanner.Options) { o.DedupCapacity = -1 }, "dedup capacity"},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			opts := scanner.DefaultOptions()
			tt.mutate(&opts)
			_, err := scanner.NewScanner(opts, suite.radio, suite.queue, suite.gate, nil, nil)
			suite.ErrorContains(err, tt.wantErr)
		})
	}
}

func (suite *ScannerTestSuite) TestRunCycle_WaitsForLink() {
	// GOAL: Verify no scan window opens before the link is up
	//
	// TEST SCENARIO: gate disconnected → RunCycle blocks, radio untouched → LinkAcquired → cycle 1 runs

	s := suite.newScanner(fastOptions())

	done := make(chan scanner.CycleSummary, 1)
	go func() {
		summary, err := s.RunCycle(context.Background())
		suite.NoError(err)
		done <- summary
	}()

	time.Sleep(30 * time.Millisecond)
	suite.radio.mu.Lock()
	suite.Equal(0, suite.radio.starts, "radio MUST NOT start while the link is down")
	suite.radio.mu.Unlock()

	suite.gate.OnLinkEvent(link.LinkAcquired)

	select {
	case summary := <-done:
		suite.Equal(uint32(1), summary.ID, "cycle ids MUST start at 1")
		suite.GreaterOrEqual(summary.Duration(), 20*time.Millisecond)
	case <-time.After(time.Second):
		suite.FailNow("cycle MUST run once the link is up")
	}
}

func (suite *ScannerTestSuite) TestRunCycle_HooksAndEvents() {
	suite.gate.OnLinkEvent(link.LinkAcquired)
	suite.radio.onStart = func(h radio.Handler) {
		h(beaconAdv(1), -40)
		h(beaconAdv(2), -41)
	}

	s := suite.newScanner(fastOptions())

	var hooked []scanner.CycleSummary
	s.OnCycleEnd(func(_ context.Context, summary scanner.CycleSummary) {
		hooked = append(hooked, summary)
	})

	for i := 0; i < 2; i++ {
		_, err := s.RunCycle(context.Background())
		suite.Require().NoError(err)
	}

	suite.Require().Len(hooked, 2)
	suite.Equal(uint32(1), hooked[0].ID)
	suite.Equal(uint32(2), hooked[1].ID, "cycle ids MUST increase by one")
	suite.Equal(2, hooked[0].Enqueued)

	first := <-s.Events()
	suite.Equal(uint32(1), first.ID)
	suite.Equal(4, suite.queue.Len())
}

func (suite *ScannerTestSuite) TestRunCycle_PauseOnLinkLoss() {
	// GOAL: Verify the optional pause policy ends a window as soon as the link drops
	//
	// TEST SCENARIO: window 5s, link lost after 20ms → cycle ends early, well before the window

	suite.gate.OnLinkEvent(link.LinkAcquired)

	opts := fastOptions()
	opts.Window = 5 * time.Second
	opts.Interval = 10 * time.Second
	opts.PauseOnLinkLoss = true
	s := suite.newScanner(opts)

	go func() {
		time.Sleep(20 * time.Millisecond)
		suite.gate.OnLinkEvent(link.LinkLost)
	}()

	start := time.Now()
	summary, err := s.RunCycle(context.Background())
	suite.Require().NoError(err)
	suite.True(summary.EndedEarly)
	suite.Less(time.Since(start), 2*time.Second)
}

func (suite *ScannerTestSuite) TestRunCycle_KeepsScanningOnLinkLossByDefault() {
	suite.gate.OnLinkEvent(link.LinkAcquired)
	s := suite.newScanner(fastOptions())

	suite.radio.onStart = func(radio.Handler) {
		suite.gate.OnLinkEvent(link.LinkLost)
	}

	summary, err := s.RunCycle(context.Background())
	suite.Require().NoError(err)
	suite.False(summary.EndedEarly)
	suite.GreaterOrEqual(summary.Duration(), 20*time.Millisecond)
}

func (suite *ScannerTestSuite) TestRun_CyclesUntilCancelled() {
	suite.gate.OnLinkEvent(link.LinkAcquired)
	s := suite.newScanner(fastOptions())

	var mu sync.Mutex
	var ids []uint32
	s.OnCycleEnd(func(_ context.Context, summary scanner.CycleSummary) {
		mu.Lock()
		ids = append(ids, summary.ID)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	suite.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ids) >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	suite.ErrorIs(<-errCh, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	for i, id := range ids {
		suite.Equal(uint32(i+1), id)
	}
}

func (suite *ScannerTestSuite) TestRun_RadioFailureIsNotFatal() {
	suite.gate.OnLinkEvent(link.LinkAcquired)
	suite.radio.startErr = radio.ErrRadioOff
	s := suite.newScanner(fastOptions())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	suite.ErrorIs(s.Run(ctx), context.DeadlineExceeded, "Run MUST keep cycling after a radio failure")
}

func TestScannerTestSuite(t *testing.T) {
	suite.Run(t, new(ScannerTestSuite))
}
