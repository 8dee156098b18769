package transcriber

import (
	"context"
	"sync"
)

// FakeBackend is a scripted backend for tests. Each Transcribe call
// pops the next scripted reply and records the request it received.
type FakeBackend struct {
	mu      sync.Mutex
	replies [][]string
	err     error
	delay   func() // optional hook, runs inside Transcribe
	calls   []Request
	closed  bool
}

func NewFakeBackend(replies ...[]string) *FakeBackend {
	return &FakeBackend{replies: replies}
}

// FailWith makes every Transcribe call return err.
func (f *FakeBackend) FailWith(err error) { f.err = err }

// OnTranscribe installs a hook that runs during each call, before the
// reply is returned. Tests use it to block the transcription goroutine.
func (f *FakeBackend) OnTranscribe(fn func()) { f.delay = fn }

func (f *FakeBackend) Name() string { return "fake" }

func (f *FakeBackend) Transcribe(ctx context.Context, req Request) ([]string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	var reply []string
	if len(f.replies) > 0 {
		reply = f.replies[0]
		f.replies = f.replies[1:]
	}
	err := f.err
	delay := f.delay
	f.mu.Unlock()

	if delay != nil {
		delay()
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return reply, nil
}

func (f *FakeBackend) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Calls returns a copy of the recorded requests.
func (f *FakeBackend) Calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.calls...)
}

// Closed reports whether Close was called.
func (f *FakeBackend) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
