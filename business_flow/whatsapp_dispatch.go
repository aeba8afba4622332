package businessflow

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/pick-intro/utils"
	"github.com/rs/zerolog"
)

var mobileUserAgent = regexp.MustCompile(`(?i)Android|iPhone|iPad|iPod|IEMobile|Opera Mini|Mobile`)

var pathPhone = regexp.MustCompile(`^\+?[0-9]+$`)

// ErrPopupBlocked is returned by a Browser that refuses to open a window
var ErrPopupBlocked = errors.New("popup blocked")

// Window is a browser window the dispatcher can navigate
type Window interface {
	Navigate(url string) error
	Closed() bool
	Close()
}

// Browser is the execution context a deep link is handed to
type Browser interface {
	UserAgent() string
	// OpenBlank opens an empty window; it must be called before any network round trip
	OpenBlank() (Window, error)
	// Open opens a new window at url
	Open(url string) (Window, error)
	// Assign navigates the current page to url
	Assign(url string) error
}

// OpenHandle is the result of PrepareOpen. Close it on paths that never dispatch.
type OpenHandle struct {
	mu     sync.Mutex
	mobile bool
	window Window
}

// IsMobile reports whether the handle was prepared for a mobile context
func (h *OpenHandle) IsMobile() bool {
	return h != nil && h.mobile
}

// HasWindow reports whether a prepared window is still held
func (h *OpenHandle) HasWindow() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.window != nil
}

// Close closes the prepared window if it was never used
func (h *OpenHandle) Close() {
	if h == nil {
		return
	}
	h.mu.Lock()
	w := h.window
	h.window = nil
	h.mu.Unlock()
	if w != nil && !w.Closed() {
		w.Close()
	}
}

func (h *OpenHandle) take() Window {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	w := h.window
	h.window = nil
	return w
}

// WhatsAppDispatcherOptions configures a dispatcher
type WhatsAppDispatcherOptions struct {
	// Scope keys the debounce record, typically the user id
	Scope           string
	DebounceWindow  time.Duration
	DesktopEndpoint string
	Hosts           []string
	Logger          zerolog.Logger
}

// WhatsAppDispatcher hands deep links to WhatsApp, pre-opening a window on desktop
// and suppressing an identical dispatch repeated within the debounce window.
type WhatsAppDispatcher struct {
	browser  Browser
	ledger   DispatchLedger
	scope    string
	window   time.Duration
	endpoint string
	hosts    []string
	logger   zerolog.Logger
}

// NewWhatsAppDispatcher creates a dispatcher bound to one browser context
func NewWhatsAppDispatcher(browser Browser, ledger DispatchLedger, opts WhatsAppDispatcherOptions) *WhatsAppDispatcher {
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = utils.DispatchDebounceWindow
	}
	if opts.DesktopEndpoint == "" {
		opts.DesktopEndpoint = utils.WhatsAppDesktopEndpoint
	}
	if len(opts.Hosts) == 0 {
		opts.Hosts = utils.WhatsAppHosts
	}
	return &WhatsAppDispatcher{
		browser:  browser,
		ledger:   ledger,
		scope:    opts.Scope,
		window:   opts.DebounceWindow,
		endpoint: opts.DesktopEndpoint,
		hosts:    opts.Hosts,
		logger:   opts.Logger.With().Str("component", "whatsapp_dispatcher").Logger(),
	}
}

// PrepareOpen detects the context and, on desktop, opens a blank window immediately
func (d *WhatsAppDispatcher) PrepareOpen() *OpenHandle {
	handle := &OpenHandle{mobile: IsMobileUserAgent(d.browser.UserAgent())}
	if handle.mobile {
		return handle
	}
	w, err := d.browser.OpenBlank()
	if err != nil {
		d.logger.Debug().Err(err).Msg("blank window could not be prepared")
		return handle
	}
	handle.window = w
	return handle
}

// Dispatch navigates to rawURL and reports whether a navigation happened
func (d *WhatsAppDispatcher) Dispatch(ctx context.Context, rawURL string, handle *OpenHandle) bool {
	mobile := IsMobileUserAgent(d.browser.UserAgent())
	if handle != nil {
		mobile = handle.mobile
	}
	platform := "desktop"
	target := RewriteForDesktop(rawURL, d.endpoint, d.hosts)
	if mobile {
		platform = "mobile"
		target = rawURL
	}

	allowed, err := d.ledger.Claim(ctx, d.scope, target, d.window)
	if err != nil {
		d.logger.Warn().Err(err).Msg("dispatch ledger unavailable; dispatching without debounce")
		allowed = true
	}
	if !allowed {
		handle.Close()
		whatsappDispatches.WithLabelValues(platform, "suppressed").Inc()
		return false
	}

	if mobile {
		if err := d.browser.Assign(target); err != nil {
			d.logger.Warn().Err(err).Msg("location assignment failed")
			whatsappDispatches.WithLabelValues(platform, "failed").Inc()
			return false
		}
		whatsappDispatches.WithLabelValues(platform, "navigated").Inc()
		return true
	}

	if w := handle.take(); w != nil {
		if !w.Closed() {
			if err := w.Navigate(target); err == nil {
				whatsappDispatches.WithLabelValues(platform, "navigated").Inc()
				return true
			}
		}
		w.Close()
	}

	if _, err := d.browser.Open(target); err != nil {
		d.logger.Info().Err(err).Msg("fallback window blocked")
		whatsappDispatches.WithLabelValues(platform, "failed").Inc()
		return false
	}
	whatsappDispatches.WithLabelValues(platform, "fallback").Inc()
	return true
}

// IsMobileUserAgent reports whether ua looks like a phone or tablet browser
func IsMobileUserAgent(ua string) bool {
	return mobileUserAgent.MatchString(ua)
}

// RewriteForDesktop maps a known WhatsApp link onto the desktop send endpoint.
// Links that carry no phone number or sit on other hosts are returned unchanged.
func RewriteForDesktop(rawURL, endpoint string, hosts []string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return rawURL
	}
	host := strings.ToLower(u.Hostname())
	if !slices.Contains(hosts, host) {
		return rawURL
	}

	query := u.Query()
	phone := utils.DigitsOnly(query.Get("phone"))
	if phone == "" {
		segment := strings.Trim(u.Path, "/")
		if i := strings.LastIndex(segment, "/"); i >= 0 {
			segment = segment[i+1:]
		}
		if pathPhone.MatchString(segment) {
			phone = utils.DigitsOnly(segment)
		}
	}
	if phone == "" {
		return rawURL
	}
	text := query.Get("text")

	target, err := url.Parse(endpoint)
	if err != nil {
		return rawURL
	}
	params := url.Values{}
	params.Set("phone", phone)
	if text != "" {
		params.Set("text", text)
	}
	target.RawQuery = params.Encode()
	return target.String()
}

// NavigationOpenBlank is the action recorded when a blank window is prepared
const NavigationOpenBlank = "open_blank"

// NavigationStep is one action taken against a RecordingBrowser
type NavigationStep struct {
	Action string `json:"action"`
	URL    string `json:"url,omitempty"`
	Window int    `json:"window,omitempty"`
}

// RecordingBrowser records navigation instead of performing it. The HTTP layer
// returns the recorded steps to the client as its navigation plan.
type RecordingBrowser struct {
	userAgent string

	mu           sync.Mutex
	steps        []NavigationStep
	windows      int
	BlockBlank   bool
	BlockOpen    bool
	FailNavigate bool
}

// NewRecordingBrowser creates a browser for the given User-Agent
func NewRecordingBrowser(userAgent string) *RecordingBrowser {
	return &RecordingBrowser{userAgent: userAgent}
}

func (b *RecordingBrowser) UserAgent() string {
	return b.userAgent
}

func (b *RecordingBrowser) OpenBlank() (Window, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.BlockBlank {
		return nil, ErrPopupBlocked
	}
	return b.openLocked("about:blank", NavigationOpenBlank), nil
}

func (b *RecordingBrowser) Open(url string) (Window, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.BlockOpen {
		return nil, ErrPopupBlocked
	}
	return b.openLocked(url, "open"), nil
}

func (b *RecordingBrowser) Assign(url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.steps = append(b.steps, NavigationStep{Action: "assign", URL: url})
	return nil
}

// Steps returns the recorded actions in order
func (b *RecordingBrowser) Steps() []NavigationStep {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.steps)
}

// Navigations counts the steps that put a URL in front of the user
func (b *RecordingBrowser) Navigations() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, s := range b.steps {
		switch s.Action {
		case "assign", "navigate", "open":
			n++
		}
	}
	return n
}

func (b *RecordingBrowser) openLocked(url, action string) *recordedWindow {
	b.windows++
	step := NavigationStep{Action: action, Window: b.windows}
	if action == "open" {
		step.URL = url
	}
	b.steps = append(b.steps, step)
	return &recordedWindow{browser: b, id: b.windows}
}

func (b *RecordingBrowser) record(step NavigationStep) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.steps = append(b.steps, step)
}

type recordedWindow struct {
	browser *RecordingBrowser
	id      int

	mu     sync.Mutex
	closed bool
}

func (w *recordedWindow) Navigate(url string) error {
	w.browser.mu.Lock()
	fail := w.browser.FailNavigate
	w.browser.mu.Unlock()
	if fail {
		return ErrPopupBlocked
	}
	w.browser.record(NavigationStep{Action: "navigate", URL: url, Window: w.id})
	return nil
}

func (w *recordedWindow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *recordedWindow) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()
	w.browser.record(NavigationStep{Action: "close", Window: w.id})
}
