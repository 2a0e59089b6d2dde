package oauth

import (
	"context"
	"crypto/subtle"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"taskctl/pkg/logging"
)

// DefaultCallbackPort is the default port for the local OAuth callback server.
const DefaultCallbackPort = 3000

// DefaultCallbackPath is the path the provider redirects to.
const DefaultCallbackPath = "/callback"

// DefaultCallbackTimeout is how long to wait for the OAuth callback.
const DefaultCallbackTimeout = 5 * time.Minute

// shutdownGrace bounds how long an in-flight browser response may delay teardown.
const shutdownGrace = time.Second

//go:embed templates/callback_success.html
var callbackSuccessHTML string

//go:embed templates/callback_error.html
var callbackErrorHTML string

var (
	successTemplate = template.Must(template.New("success").Parse(callbackSuccessHTML))
	errorTemplate   = template.Must(template.New("error").Parse(callbackErrorHTML))
)

// RedirectURIForPort returns the loopback redirect URI for a callback port.
func RedirectURIForPort(port int) string {
	return fmt.Sprintf("http://localhost:%d%s", port, DefaultCallbackPath)
}

// CallbackOutcome is the state of a CallbackServer.
type CallbackOutcome int

const (
	// CallbackListening means no terminal callback has been received yet.
	CallbackListening CallbackOutcome = iota

	// CallbackSucceeded means a callback with a matching state and a code arrived.
	CallbackSucceeded

	// CallbackRejected means the provider reported an error, or the state or
	// code was unacceptable.
	CallbackRejected

	// CallbackTimedOut means the deadline passed before a callback arrived.
	CallbackTimedOut
)

// String returns the string representation of the outcome.
func (o CallbackOutcome) String() string {
	switch o {
	case CallbackListening:
		return "listening"
	case CallbackSucceeded:
		return "succeeded"
	case CallbackRejected:
		return "rejected"
	case CallbackTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// callbackResult is what the handler hands to Wait.
type callbackResult struct {
	outcome CallbackOutcome
	code    string
	err     error
}

// CallbackServer is a single-use local HTTP listener for one login attempt.
// The first request on the redirect path decides the outcome; every other
// request gets 404. The listener is torn down when Wait returns.
type CallbackServer struct {
	redirectURI   *url.URL
	expectedState string

	server   *http.Server
	listener net.Listener
	resultCh chan *callbackResult
	errorCh  chan error
	done     chan struct{}

	handleOnce sync.Once
	stopOnce   sync.Once

	mu      sync.Mutex
	outcome CallbackOutcome
}

// NewCallbackServer creates a callback server for redirectURI that accepts
// only expectedState. A port of 0 in redirectURI picks a free port at Start.
func NewCallbackServer(redirectURI, expectedState string) (*CallbackServer, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI: %w", err)
	}
	if u.Scheme != "http" {
		return nil, fmt.Errorf("redirect URI must use http on the loopback interface, got %q", u.Scheme)
	}
	if u.Port() == "" {
		return nil, fmt.Errorf("redirect URI %q has no port", redirectURI)
	}
	if expectedState == "" {
		return nil, errors.New("expected state must not be empty")
	}
	if u.Path == "" {
		u.Path = "/"
	}

	return &CallbackServer{
		redirectURI:   u,
		expectedState: expectedState,
		resultCh:      make(chan *callbackResult, 1),
		errorCh:       make(chan error, 1),
		done:          make(chan struct{}),
	}, nil
}

// Start binds the listener and begins serving. It must be called before the
// browser is sent to the provider. The server also stops when ctx is done.
func (s *CallbackServer) Start(ctx context.Context) error {
	host := s.redirectURI.Hostname()
	if host == "localhost" {
		host = "127.0.0.1"
	}
	addr := net.JoinHostPort(host, s.redirectURI.Port())

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start callback server on %s: %w", addr, err)
	}
	s.listener = listener

	// Resolve an ephemeral port so RedirectURI reports what is really bound
	if s.redirectURI.Port() == "0" {
		port := listener.Addr().(*net.TCPAddr).Port
		s.redirectURI.Host = net.JoinHostPort(s.redirectURI.Hostname(), strconv.Itoa(port))
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.redirectURI.Path, s.handleCallback)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errorCh <- err:
			default:
			}
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.done:
		}
	}()

	logging.Debug("Callback", "Listening for the authorization callback on %s", listener.Addr())
	return nil
}

// Wait blocks until a terminal callback arrives or ctx is done, and returns
// the authorization code. The listener is stopped before Wait returns.
func (s *CallbackServer) Wait(ctx context.Context) (string, error) {
	defer s.Stop()

	select {
	case result := <-s.resultCh:
		s.setOutcome(result.outcome)
		if result.err != nil {
			return "", result.err
		}
		return result.code, nil
	case err := <-s.errorCh:
		s.setOutcome(CallbackRejected)
		return "", fmt.Errorf("callback server failed: %w", err)
	case <-ctx.Done():
		s.setOutcome(CallbackTimedOut)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrCallbackTimeout
		}
		return "", ctx.Err()
	}
}

// Stop shuts the server down and releases the port. Safe to call repeatedly.
func (s *CallbackServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.server != nil && !s.answered() {
			_ = s.server.Close()
		} else if s.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := s.server.Shutdown(ctx); err != nil {
				_ = s.server.Close()
			}
		}
		if s.listener != nil {
			_ = s.listener.Close()
		}
	})
}

// RedirectURI returns the redirect URI the server is listening on.
func (s *CallbackServer) RedirectURI() string {
	return s.redirectURI.String()
}

// Port returns the bound port, or the configured one before Start.
func (s *CallbackServer) Port() int {
	port, _ := strconv.Atoi(s.redirectURI.Port())
	return port
}

// Outcome returns the current state of the server.
func (s *CallbackServer) Outcome() CallbackOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// answered reports whether a callback was processed. Only then is there a
// browser response worth draining on shutdown.
func (s *CallbackServer) answered() bool {
	o := s.Outcome()
	return o == CallbackSucceeded || o == CallbackRejected
}

func (s *CallbackServer) setOutcome(o CallbackOutcome) {
	s.mu.Lock()
	if s.outcome == CallbackListening {
		s.outcome = o
	}
	s.mu.Unlock()
}

// handleCallback processes the first request only.
func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	var handled bool
	s.handleOnce.Do(func() {
		handled = true
		s.processCallback(w, r)
	})

	if !handled {
		http.NotFound(w, r)
	}
}

func (s *CallbackServer) processCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	result := s.evaluate(r.URL.Query())

	var err error
	if result.err == nil {
		err = successTemplate.Execute(w, nil)
	} else {
		w.WriteHeader(http.StatusBadRequest)
		err = errorTemplate.Execute(w, map[string]string{"Message": browserMessage(result.err)})
	}
	if err != nil {
		logging.WarnErr("Callback", err, "Failed to render callback page")
	}

	select {
	case s.resultCh <- result:
	default:
	}
}

// evaluate applies the callback rules in order: provider error, state, code.
func (s *CallbackServer) evaluate(query url.Values) *callbackResult {
	if errCode := query.Get("error"); errCode != "" {
		logging.Warn("Callback", "Provider reported an authorization error: %s", errCode)
		return &callbackResult{
			outcome: CallbackRejected,
			err: &AuthorizationError{
				Code:        errCode,
				Description: query.Get("error_description"),
			},
		}
	}

	state := query.Get("state")
	if state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(s.expectedState)) != 1 {
		logging.Audit(logging.AuditEvent{
			Action:  "callback_state_mismatch",
			Outcome: "rejected",
			Detail:  fmt.Sprintf("received_state_len=%d", len(state)),
		})
		return &callbackResult{outcome: CallbackRejected, err: ErrStateMismatch}
	}

	code := query.Get("code")
	if code == "" {
		return &callbackResult{outcome: CallbackRejected, err: ErrMissingCode}
	}

	return &callbackResult{outcome: CallbackSucceeded, code: code}
}

func browserMessage(err error) string {
	var authErr *AuthorizationError
	switch {
	case errors.As(err, &authErr):
		return "The identity provider did not grant access."
	case errors.Is(err, ErrStateMismatch):
		return "The sign-in response could not be matched to this login attempt."
	default:
		return "The sign-in response was incomplete."
	}
}
