package dyndns

import (
	"context"
	"fmt"
	"log"
	"time"
)

// By is a locator strategy for finding an element on the console page.
type By string

const (
	ByID    By = "id"
	ByQuery By = "css"
)

// Locator identifies one element on the router console page.
// It is only a lookup key; nothing about the element is cached.
type Locator struct {
	By    By
	Value string
}

func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.By, l.Value)
}

// Element IDs in the router's web console. The vendor markup is an
// accepted external dependency; if it changes, these must change with it.
var (
	passwordField       = Locator{ByID, "adminPass"}
	loginButton         = Locator{ByID, "submit-login"}
	troubleshootingIcon = Locator{ByID, "iconTroubleshooting"}
	diagnosticsTab      = Locator{ByID, "diagnosticsTab"}
	ipAddress           = Locator{ByID, "ip-addr"}
)

// ObservationErrorKind classifies why an observation pass failed.
type ObservationErrorKind string

const (
	// ConnectionFailed means the browser session could not be opened
	// or the console page could not be reached.
	ConnectionFailed ObservationErrorKind = "connection failed"
	// ElementTimeout means a console element did not satisfy its wait
	// condition within the configured timeout.
	ElementTimeout ObservationErrorKind = "element timeout"
)

// ObservationError is the failure of one observation pass.
// By the time it is returned the browser session has been released.
type ObservationError struct {
	Kind    ObservationErrorKind
	Context string // the element or address involved
	Err     error
}

func (e *ObservationError) Error() string {
	return fmt.Sprintf("router observation: %s (%s): %v", e.Kind, e.Context, e.Err)
}

func (e *ObservationError) Unwrap() error { return e.Err }

// console is one live browsing session against the router console.
// Every wait is bounded by the session's timeout. A console is used by
// exactly one observation pass and must be closed exactly once.
type console interface {
	Navigate(url string) error
	WaitClickable(loc Locator) error
	WaitPresent(loc Locator) error
	Click(loc Locator) error
	ClearAndType(loc Locator, text string) error
	// ClickAt clicks at the element's position rather than on the
	// element itself. The console renders an overlay that intercepts
	// direct clicks on some elements even though their location is
	// interactable.
	ClickAt(loc Locator) error
	Text(loc Locator) (string, error)
	Close() error
}

// RouterObserver extracts the ISP-assigned IP from a router's web
// console by driving a browser through the login and diagnostics pages.
//
// The console is external, flaky, and renders asynchronously, so every
// interaction is time-boxed by Timeout and any failure aborts the pass.
type RouterObserver struct {
	URL      string
	Password string
	Timeout  time.Duration
	// Headful shows the browser window instead of running headless.
	// Useful when the console markup has changed and the locators
	// need debugging.
	Headful bool

	logger       *log.Logger
	startSession func(ctx context.Context) (console, error)
}

// NewRouterObserver returns a RouterObserver for the console at url.
// A non-positive timeout falls back to 30 seconds.
func NewRouterObserver(url, password string, timeout time.Duration) *RouterObserver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	o := &RouterObserver{
		URL:      url,
		Password: password,
		Timeout:  timeout,
		logger:   discard,
	}
	o.startSession = o.startChrome
	return o
}

// SetLogger sets the logger used during observation.
// The default is to discard log messages.
func (o *RouterObserver) SetLogger(logger *log.Logger) {
	if logger == nil {
		logger = discard
	}
	o.logger = logger
}

// ObserveIP implements dyndns.Observer.
//
// It runs the full console sequence: log in, open the troubleshooting
// diagnostics page, and read the displayed IP address. The text is
// returned as-is; syntactic validation belongs to the caller.
//
// The browser session is released on every exit path, success or
// failure, before ObserveIP returns.
func (o *RouterObserver) ObserveIP(ctx context.Context) (string, error) {
	// zero-value construction is allowed, e.g. &RouterObserver{URL: u}
	if o.logger == nil {
		o.logger = discard
	}
	if o.startSession == nil {
		o.startSession = o.startChrome
	}

	session, err := o.startSession(ctx)
	if err != nil {
		return "", &ObservationError{Kind: ConnectionFailed, Context: "browser session", Err: err}
	}

	ip, err := o.observe(session)
	if cerr := session.Close(); cerr != nil {
		o.logger.Printf("error closing browser session: %s\n", cerr)
	}
	if err != nil {
		return "", err
	}
	return ip, nil
}

func (o *RouterObserver) observe(session console) (string, error) {
	o.logger.Printf("navigating to %s...\n", o.URL)
	if err := session.Navigate(o.URL); err != nil {
		return "", &ObservationError{Kind: ConnectionFailed, Context: o.URL, Err: err}
	}

	if err := session.WaitClickable(passwordField); err != nil {
		return "", &ObservationError{Kind: ElementTimeout, Context: "password field", Err: err}
	}
	if err := session.ClearAndType(passwordField, o.Password); err != nil {
		return "", &ObservationError{Kind: ElementTimeout, Context: "password field", Err: err}
	}
	if err := session.WaitClickable(loginButton); err != nil {
		return "", &ObservationError{Kind: ElementTimeout, Context: "login button", Err: err}
	}
	if err := session.Click(loginButton); err != nil {
		return "", &ObservationError{Kind: ElementTimeout, Context: "login button", Err: err}
	}
	o.logger.Println("logged in; waiting for the console app to settle")

	// The console has no reliable "ready" signal after login; the
	// client-side app keeps rendering well past document load. These
	// pauses compensate, scaled from the wait budget (30s -> 10s/5s).
	time.Sleep(o.timeoutOrDefault() / 3)

	if err := session.ClickAt(troubleshootingIcon); err != nil {
		return "", &ObservationError{Kind: ElementTimeout, Context: "troubleshooting icon", Err: err}
	}
	time.Sleep(o.timeoutOrDefault() / 6)
	if err := session.ClickAt(diagnosticsTab); err != nil {
		return "", &ObservationError{Kind: ElementTimeout, Context: "diagnostics tab", Err: err}
	}

	if err := session.WaitPresent(ipAddress); err != nil {
		return "", &ObservationError{Kind: ElementTimeout, Context: "ip address", Err: err}
	}
	ip, err := session.Text(ipAddress)
	if err != nil {
		return "", &ObservationError{Kind: ElementTimeout, Context: "ip address", Err: err}
	}
	o.logger.Printf("read ISP IP from console: %q\n", ip)
	return ip, nil
}
