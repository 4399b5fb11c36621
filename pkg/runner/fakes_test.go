package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"

	"digital.vasic.harness/pkg/azure"
	"digital.vasic.harness/pkg/browser"
	"digital.vasic.harness/pkg/browserstack"
	"digital.vasic.harness/pkg/metrics"
)

var (
	_ Reporter      = (*azure.Service)(nil)
	_ Browser       = (*browser.Launcher)(nil)
	_ SessionStatus = (*browserstack.Executor)(nil)
)

const annotatedTitle = "@PLAN_ID=92119 @SUITE_ID=98664 @[61931] Validate successful login"

type finishCall struct {
	exec    *azure.Execution
	outcome azure.Outcome
	errMsg  string
}

type fakeReporter struct {
	mu          sync.Mutex
	executions  []*azure.Execution
	activations int
	finishes    []finishCall
	activateErr error
}

func (f *fakeReporter) NewExecution(title string, meta azure.TestMetadata) *azure.Execution {
	f.mu.Lock()
	defer f.mu.Unlock()
	exec := &azure.Execution{Title: title, Metadata: meta, Buffer: azure.NewBuffer()}
	f.executions = append(f.executions, exec)
	return exec
}

func (f *fakeReporter) Activate(_ context.Context, _ *azure.Execution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activations++
	return f.activateErr
}

func (f *fakeReporter) Finish(
	ctx context.Context, exec *azure.Execution, outcome azure.Outcome, errMsg string,
) azure.FinishReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finishes = append(f.finishes, finishCall{exec: exec, outcome: outcome, errMsg: errMsg})
	if ctx.Err() != nil {
		return azure.FinishReport{Outcome: outcome, Abort: "context done"}
	}
	return azure.FinishReport{Outcome: outcome, RunID: 101, ResultID: 100000}
}

func (f *fakeReporter) finishCalls() []finishCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]finishCall(nil), f.finishes...)
}

type fakeRecorder struct {
	mu   sync.Mutex
	obs  []metrics.Observation
	envs []string
}

func (f *fakeRecorder) ObserveTest(obs metrics.Observation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.obs = append(f.obs, obs)
}

func (f *fakeRecorder) SetEnvironment(env string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.envs = append(f.envs, env)
}

func (f *fakeRecorder) observations() []metrics.Observation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]metrics.Observation(nil), f.obs...)
}

// fakePage implements the few page methods the hooks call. Any other
// method panics through the nil embedded interface.
type fakePage struct {
	playwright.Page

	mu        sync.Mutex
	evaluated []string
	visited   []string
	closed    bool
}

func (p *fakePage) Evaluate(expression string, arg ...any) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evaluated = append(p.evaluated, fmt.Sprint(arg...))
	return nil, nil
}

func (p *fakePage) Goto(url string, _ ...playwright.PageGotoOptions) (playwright.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visited = append(p.visited, url)
	return nil, nil
}

func (p *fakePage) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakePage) Close(_ ...playwright.PageCloseOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePage) payloads() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.evaluated...)
}

type fakeBrowser struct {
	mu     sync.Mutex
	remote bool
	err    error
	pages  []*fakePage
}

func (b *fakeBrowser) Start(_ context.Context, _ string) (*browser.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	page := &fakePage{}
	b.pages = append(b.pages, page)
	return &browser.Session{Page: page, Remote: b.remote}, nil
}

func (b *fakeBrowser) lastPage() *fakePage {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pages) == 0 {
		return nil
	}
	return b.pages[len(b.pages)-1]
}

type fakeTruncater struct {
	calls int
	err   error
}

func (f *fakeTruncater) Truncate() error {
	f.calls++
	return f.err
}

type recordingListener struct {
	mu       sync.Mutex
	started  []string
	finished []Result
}

func (l *recordingListener) TestStarted(title, _ string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = append(l.started, title)
}

func (l *recordingListener) TestFinished(res Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finished = append(l.finished, res)
}
