package system

import (
	"context"
	"strings"
	"sync"
)

// Fake is an in-memory Runner for unit tests. Responses are keyed by the
// full command line ("name arg1 arg2 ..."); unscripted commands fail with
// NotScriptedError so tests notice unexpected invocations.
type Fake struct {
	mu        sync.Mutex
	Responses map[string]FakeResponse
	Tools     map[string]string // LookPath results; absent => not installed
	Calls     []string
}

type FakeResponse struct {
	Stdout []byte
	Err    error
}

func NewFake() *Fake {
	return &Fake{
		Responses: map[string]FakeResponse{},
		Tools:     map[string]string{},
	}
}

// Script registers a canned response for the given command line.
func (f *Fake) Script(cmdline string, stdout string, err error) {
	f.Responses[cmdline] = FakeResponse{Stdout: []byte(stdout), Err: err}
}

func (f *Fake) Run(ctx context.Context, name string, args ...string) error {
	_, err := f.Output(ctx, name, args...)
	return err
}

func (f *Fake) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	key := strings.Join(append([]string{name}, args...), " ")
	f.mu.Lock()
	f.Calls = append(f.Calls, key)
	resp, ok := f.Responses[key]
	f.mu.Unlock()
	if !ok {
		return nil, &NotScriptedError{Cmdline: key}
	}
	return resp.Stdout, resp.Err
}

func (f *Fake) LookPath(name string) (string, error) {
	if p, ok := f.Tools[name]; ok {
		return p, nil
	}
	return "", &NotScriptedError{Cmdline: name}
}

// CallCount returns how many scripted invocations had the given prefix.
func (f *Fake) CallCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

type NotScriptedError struct{ Cmdline string }

func (e *NotScriptedError) Error() string { return "command not scripted: " + e.Cmdline }
