package dyndns

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeConsole scripts one console session. Setting failOn to a step
// key makes that step fail; every session records its interactions and
// how many times it was closed.
type fakeConsole struct {
	failOn string
	ipText string
	typed  string
	calls  []string
	closed int
}

func (f *fakeConsole) step(name string) error {
	f.calls = append(f.calls, name)
	if name == f.failOn {
		return errors.New("simulated failure at " + name)
	}
	return nil
}

func (f *fakeConsole) Navigate(url string) error       { return f.step("navigate") }
func (f *fakeConsole) WaitClickable(loc Locator) error { return f.step("wait " + loc.Value) }
func (f *fakeConsole) WaitPresent(loc Locator) error   { return f.step("present " + loc.Value) }
func (f *fakeConsole) Click(loc Locator) error         { return f.step("click " + loc.Value) }
func (f *fakeConsole) ClickAt(loc Locator) error       { return f.step("clickat " + loc.Value) }
func (f *fakeConsole) ClearAndType(loc Locator, text string) error {
	f.typed = text
	return f.step("type " + loc.Value)
}
func (f *fakeConsole) Text(loc Locator) (string, error) {
	if err := f.step("text " + loc.Value); err != nil {
		return "", err
	}
	return f.ipText, nil
}
func (f *fakeConsole) Close() error {
	f.closed++
	return nil
}

// short timeout keeps the settle pauses in the low milliseconds
func testObserver(fake *fakeConsole) *RouterObserver {
	o := NewRouterObserver("http://192.168.1.1", "hunter2", 60*time.Millisecond)
	o.startSession = func(ctx context.Context) (console, error) { return fake, nil }
	return o
}

func TestObserveReadsConsoleIP(t *testing.T) {
	fake := &fakeConsole{ipText: "203.0.113.5"}
	o := testObserver(fake)

	ip, err := o.ObserveIP(context.Background())
	if err != nil {
		t.Fatalf("ObserveIP failed: %s", err)
	}
	if ip != "203.0.113.5" {
		t.Errorf("Expected %q; got %q", "203.0.113.5", ip)
	}
	if fake.typed != "hunter2" {
		t.Errorf("Expected password %q to be typed; got %q", "hunter2", fake.typed)
	}
	if fake.closed != 1 {
		t.Errorf("Expected the session to be closed exactly once; closed %d times", fake.closed)
	}

	want := []string{
		"navigate",
		"wait adminPass",
		"type adminPass",
		"wait submit-login",
		"click submit-login",
		"clickat iconTroubleshooting",
		"clickat diagnosticsTab",
		"present ip-addr",
		"text ip-addr",
	}
	if got := strings.Join(fake.calls, ","); got != strings.Join(want, ",") {
		t.Errorf("Unexpected interaction sequence:\nwant %v\ngot  %v", want, fake.calls)
	}
}

func TestObserveDoesNotValidateText(t *testing.T) {
	// syntactic validation belongs to the caller
	fake := &fakeConsole{ipText: "checking ip address..."}
	o := testObserver(fake)

	ip, err := o.ObserveIP(context.Background())
	if err != nil {
		t.Fatalf("ObserveIP failed: %s", err)
	}
	if ip != "checking ip address..." {
		t.Errorf("Expected console text returned verbatim; got %q", ip)
	}
}

func TestObserveFailurePaths(t *testing.T) {
	tests := []struct {
		failOn      string
		wantKind    ObservationErrorKind
		wantContext string
	}{
		{"navigate", ConnectionFailed, "http://192.168.1.1"},
		{"wait adminPass", ElementTimeout, "password field"},
		{"type adminPass", ElementTimeout, "password field"},
		{"wait submit-login", ElementTimeout, "login button"},
		{"click submit-login", ElementTimeout, "login button"},
		{"clickat iconTroubleshooting", ElementTimeout, "troubleshooting icon"},
		{"clickat diagnosticsTab", ElementTimeout, "diagnostics tab"},
		{"present ip-addr", ElementTimeout, "ip address"},
		{"text ip-addr", ElementTimeout, "ip address"},
	}
	for _, tt := range tests {
		t.Run(tt.failOn, func(t *testing.T) {
			fake := &fakeConsole{ipText: "203.0.113.5", failOn: tt.failOn}
			o := testObserver(fake)

			_, err := o.ObserveIP(context.Background())
			if err == nil {
				t.Fatal("Expected an error; got err == nil")
			}
			var oerr *ObservationError
			if !errors.As(err, &oerr) {
				t.Fatalf("Expected an *ObservationError; got %T: %s", err, err)
			}
			if oerr.Kind != tt.wantKind {
				t.Errorf("Expected kind %q; got %q", tt.wantKind, oerr.Kind)
			}
			if oerr.Context != tt.wantContext {
				t.Errorf("Expected context %q; got %q", tt.wantContext, oerr.Context)
			}
			if fake.closed != 1 {
				t.Errorf("Expected the session to be closed exactly once; closed %d times", fake.closed)
			}
		})
	}
}

func TestObserveSessionStartFailure(t *testing.T) {
	o := NewRouterObserver("http://192.168.1.1", "hunter2", 60*time.Millisecond)
	o.startSession = func(ctx context.Context) (console, error) {
		return nil, errors.New("no usable browser found")
	}

	_, err := o.ObserveIP(context.Background())
	var oerr *ObservationError
	if !errors.As(err, &oerr) {
		t.Fatalf("Expected an *ObservationError; got %T: %v", err, err)
	}
	if oerr.Kind != ConnectionFailed {
		t.Errorf("Expected kind %q; got %q", ConnectionFailed, oerr.Kind)
	}
}

func TestWaitBoundedSharedAcrossActions(t *testing.T) {
	// a step made of several actions (locate, then click) shares one
	// deadline; the second action must not get a fresh budget
	timeout := 20 * time.Millisecond
	start := time.Now()
	err := waitBounded(context.Background(), timeout, func(ctx context.Context) error {
		<-ctx.Done() // first action exhausts the budget
		select {     // the next action sees the same expired deadline
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded; got %v", err)
	}
	if elapsed := time.Since(start); elapsed > timeout+500*time.Millisecond {
		t.Errorf("Expected both actions bounded by one %s budget; took %s", timeout, elapsed)
	}
}

func TestWaitBoundedDeadline(t *testing.T) {
	for _, timeout := range []time.Duration{0, 10 * time.Millisecond, 50 * time.Millisecond} {
		start := time.Now()
		err := waitBounded(context.Background(), timeout, func(ctx context.Context) error {
			// a wait whose condition is never satisfied
			<-ctx.Done()
			return ctx.Err()
		})
		elapsed := time.Since(start)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("timeout %s: expected context.DeadlineExceeded; got %v", timeout, err)
		}
		if elapsed > timeout+time.Second {
			t.Errorf("timeout %s: wait was not bounded; took %s", timeout, elapsed)
		}
	}
}
