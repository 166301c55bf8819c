package debate

import (
	"context"
	"iter"
	"strings"
	"sync"
)

// fakeBackend replays a fixed list of fragments.
type fakeBackend struct {
	mu        sync.Mutex
	fragments []string
	err       error // yielded after fragments
	requests  []CompletionRequest

	started chan struct{} // closed when a stream begins, if non-nil
	release chan struct{} // awaited before the first fragment, if non-nil
}

func (f *fakeBackend) record(req CompletionRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
}

func (f *fakeBackend) lastRequest() CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return CompletionRequest{}
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakeBackend) CreateCompletion(_ context.Context, req CompletionRequest) (string, error) {
	f.record(req)
	if f.err != nil {
		return "", f.err
	}
	return strings.Join(f.fragments, ""), nil
}

func (f *fakeBackend) StreamCompletion(_ context.Context, req CompletionRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		f.record(req)
		if f.started != nil {
			close(f.started)
		}
		if f.release != nil {
			<-f.release
		}
		for _, frag := range f.fragments {
			if !yield(frag, nil) {
				return
			}
		}
		if f.err != nil {
			yield("", f.err)
		}
	}
}
