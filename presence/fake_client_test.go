package presence

import (
	"sync"
)

// call is one recorded Client invocation.
type call struct {
	op       string
	activity Activity
}

// fakeClient records calls and returns scripted errors.
type fakeClient struct {
	mu    sync.Mutex
	calls []call

	// errs maps an op to the errors returned by successive calls; once a
	// slice is exhausted calls succeed.
	errs map[string][]error
	// panics makes the named op panic.
	panics map[string]bool
	// block, when set, is received from before Connect returns.
	block chan struct{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		errs:   make(map[string][]error),
		panics: make(map[string]bool),
	}
}

func (f *fakeClient) failNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = append(f.errs[op], err)
}

func (f *fakeClient) record(op string, activity Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call{op: op, activity: activity})
	if f.panics[op] {
		panic(op + " exploded")
	}
	if errs := f.errs[op]; len(errs) > 0 {
		f.errs[op] = errs[1:]
		return errs[0]
	}
	return nil
}

func (f *fakeClient) Connect() error {
	if f.block != nil {
		<-f.block
	}
	return f.record(OpConnect, Activity{})
}

func (f *fakeClient) SetActivity(activity Activity) error {
	return f.record(OpSetActivity, activity)
}

func (f *fakeClient) ClearActivity() error {
	return f.record(OpClearActivity, Activity{})
}

func (f *fakeClient) Close() error {
	return f.record(OpClose, Activity{})
}

func (f *fakeClient) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make([]call, len(f.calls))
	copy(result, f.calls)
	return result
}

func (f *fakeClient) ops() []string {
	calls := f.Calls()
	ops := make([]string, len(calls))
	for i, c := range calls {
		ops[i] = c.op
	}
	return ops
}

func (f *fakeClient) count(op string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.op == op {
			n++
		}
	}
	return n
}
