package businessflow

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	testingutil "github.com/amirphl/pick-intro/testing"
	"github.com/amirphl/pick-intro/utils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source for ledgers
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// failingLedger always errors
type failingLedger struct{}

func (failingLedger) Claim(ctx context.Context, scope, url string, window time.Duration) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func newDispatcher(browser Browser, ledger DispatchLedger) *WhatsAppDispatcher {
	return NewWhatsAppDispatcher(browser, ledger, WhatsAppDispatcherOptions{
		Scope:          "user-1",
		DebounceWindow: time.Second,
		Logger:         zerolog.Nop(),
	})
}

const introURL = "https://wa.me/15551234567?text=hello"

func TestRewriteForDesktop(t *testing.T) {
	tests := []struct {
		name  string
		input string
		phone string
		text  string
	}{
		{"PathPhone", "https://wa.me/15551234567?text=hello", "15551234567", "hello"},
		{"APIQueryPhone", "https://api.whatsapp.com/send?phone=%2B15551234567&text=hi%20there", "15551234567", "hi there"},
		{"WWWHost", "https://www.whatsapp.com/send/?phone=15551234567&text=yo", "15551234567", "yo"},
		{"NoText", "https://wa.me/15551234567", "15551234567", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RewriteForDesktop(tt.input, utils.WhatsAppDesktopEndpoint, utils.WhatsAppHosts)
			parsed, err := url.Parse(out)
			require.NoError(t, err)
			assert.Equal(t, "web.whatsapp.com", parsed.Host)
			assert.Equal(t, "/send", parsed.Path)
			assert.Equal(t, tt.phone, parsed.Query().Get("phone"))
			assert.Equal(t, tt.text, parsed.Query().Get("text"))
		})
	}

	t.Run("UnknownHostUnchanged", func(t *testing.T) {
		in := "https://example.com/15551234567?text=hello"
		assert.Equal(t, in, RewriteForDesktop(in, utils.WhatsAppDesktopEndpoint, utils.WhatsAppHosts))
	})

	t.Run("NonPhonePathUnchanged", func(t *testing.T) {
		for _, in := range []string{
			"https://wa.me/message/2QFL7QR7EBZTD1",
			"https://api.whatsapp.com/send?text=hello",
			"https://wa.me/15551234567x",
		} {
			assert.Equal(t, in, RewriteForDesktop(in, utils.WhatsAppDesktopEndpoint, utils.WhatsAppHosts), in)
		}
	})

	t.Run("PlusPrefixedPathPhone", func(t *testing.T) {
		assert.Equal(t,
			"https://web.whatsapp.com/send?phone=15551234567",
			RewriteForDesktop("https://wa.me/+15551234567", utils.WhatsAppDesktopEndpoint, utils.WhatsAppHosts))
	})

	t.Run("Exact", func(t *testing.T) {
		assert.Equal(t,
			"https://web.whatsapp.com/send?phone=15551234567&text=hello",
			RewriteForDesktop(introURL, utils.WhatsAppDesktopEndpoint, utils.WhatsAppHosts))
	})
}

func TestIsMobileUserAgent(t *testing.T) {
	assert.True(t, IsMobileUserAgent(testingutil.MobileUserAgent))
	assert.True(t, IsMobileUserAgent("Mozilla/5.0 (Linux; android 14)"))
	assert.True(t, IsMobileUserAgent("Opera/9.80 (J2ME/MIDP; Opera Mini/9.80)"))
	assert.False(t, IsMobileUserAgent(testingutil.DesktopUserAgent))
	assert.False(t, IsMobileUserAgent(""))
}

func TestWhatsAppDispatcherDesktop(t *testing.T) {
	ctx := context.Background()

	t.Run("NavigatesPreparedWindow", func(t *testing.T) {
		browser := NewRecordingBrowser(testingutil.DesktopUserAgent)
		dispatcher := newDispatcher(browser, NewMemoryDispatchLedger())

		handle := dispatcher.PrepareOpen()
		assert.False(t, handle.IsMobile())
		assert.True(t, handle.HasWindow())

		assert.True(t, dispatcher.Dispatch(ctx, introURL, handle))
		assert.Equal(t, []NavigationStep{
			{Action: "open_blank", Window: 1},
			{Action: "navigate", URL: "https://web.whatsapp.com/send?phone=15551234567&text=hello", Window: 1},
		}, browser.Steps())
		assert.Equal(t, 1, browser.Navigations())
	})

	t.Run("FallsBackWhenWindowClosed", func(t *testing.T) {
		browser := NewRecordingBrowser(testingutil.DesktopUserAgent)
		dispatcher := newDispatcher(browser, NewMemoryDispatchLedger())

		handle := dispatcher.PrepareOpen()
		handle.window.Close()

		assert.True(t, dispatcher.Dispatch(ctx, introURL, handle))
		steps := browser.Steps()
		require.Len(t, steps, 3)
		assert.Equal(t, "open", steps[2].Action)
		assert.Contains(t, steps[2].URL, "web.whatsapp.com")
	})

	t.Run("FallsBackWhenBlankBlocked", func(t *testing.T) {
		browser := NewRecordingBrowser(testingutil.DesktopUserAgent)
		browser.BlockBlank = true
		dispatcher := newDispatcher(browser, NewMemoryDispatchLedger())

		handle := dispatcher.PrepareOpen()
		assert.False(t, handle.HasWindow())
		assert.True(t, dispatcher.Dispatch(ctx, introURL, handle))
		assert.Equal(t, "open", browser.Steps()[0].Action)
	})

	t.Run("FailsOnlyWhenFallbackFails", func(t *testing.T) {
		browser := NewRecordingBrowser(testingutil.DesktopUserAgent)
		browser.FailNavigate = true
		browser.BlockOpen = true
		dispatcher := newDispatcher(browser, NewMemoryDispatchLedger())

		handle := dispatcher.PrepareOpen()
		assert.False(t, dispatcher.Dispatch(ctx, introURL, handle))
		assert.Equal(t, 0, browser.Navigations())
	})

	t.Run("CloseReleasesUnusedWindow", func(t *testing.T) {
		browser := NewRecordingBrowser(testingutil.DesktopUserAgent)
		dispatcher := newDispatcher(browser, NewMemoryDispatchLedger())

		handle := dispatcher.PrepareOpen()
		handle.Close()
		handle.Close()
		assert.Equal(t, []NavigationStep{
			{Action: "open_blank", Window: 1},
			{Action: "close", Window: 1},
		}, browser.Steps())
	})
}

func TestWhatsAppDispatcherMobile(t *testing.T) {
	browser := NewRecordingBrowser(testingutil.MobileUserAgent)
	dispatcher := newDispatcher(browser, NewMemoryDispatchLedger())

	handle := dispatcher.PrepareOpen()
	assert.True(t, handle.IsMobile())
	assert.False(t, handle.HasWindow())

	assert.True(t, dispatcher.Dispatch(context.Background(), introURL, handle))
	assert.Equal(t, []NavigationStep{{Action: "assign", URL: introURL}}, browser.Steps())
}

func TestWhatsAppDispatcherDebounce(t *testing.T) {
	ctx := context.Background()

	t.Run("OneNavigationInsideWindowTwoAfter", func(t *testing.T) {
		clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
		ledger := NewMemoryDispatchLedger().WithClock(clock.Now)
		browser := NewRecordingBrowser(testingutil.MobileUserAgent)
		dispatcher := newDispatcher(browser, ledger)

		assert.True(t, dispatcher.Dispatch(ctx, introURL, dispatcher.PrepareOpen()))
		clock.Advance(500 * time.Millisecond)
		assert.False(t, dispatcher.Dispatch(ctx, introURL, dispatcher.PrepareOpen()))
		assert.Equal(t, 1, browser.Navigations())

		clock.Advance(time.Second)
		assert.True(t, dispatcher.Dispatch(ctx, introURL, dispatcher.PrepareOpen()))
		assert.Equal(t, 2, browser.Navigations())
	})

	t.Run("SharedAcrossDispatchers", func(t *testing.T) {
		ledger := NewMemoryDispatchLedger()
		first := NewRecordingBrowser(testingutil.DesktopUserAgent)
		second := NewRecordingBrowser(testingutil.DesktopUserAgent)

		assert.True(t, newDispatcher(first, ledger).Dispatch(ctx, introURL, nil))

		other := newDispatcher(second, ledger)
		handle := other.PrepareOpen()
		assert.False(t, other.Dispatch(ctx, introURL, handle))
		assert.Equal(t, []NavigationStep{
			{Action: "open_blank", Window: 1},
			{Action: "close", Window: 1},
		}, second.Steps())
	})

	t.Run("DifferentURLIsNotSuppressed", func(t *testing.T) {
		ledger := NewMemoryDispatchLedger()
		browser := NewRecordingBrowser(testingutil.MobileUserAgent)
		dispatcher := newDispatcher(browser, ledger)

		assert.True(t, dispatcher.Dispatch(ctx, introURL, nil))
		assert.True(t, dispatcher.Dispatch(ctx, introURL+"2", nil))
		assert.Equal(t, 2, browser.Navigations())
	})

	t.Run("ResetForgetsHistory", func(t *testing.T) {
		ledger := NewMemoryDispatchLedger()
		browser := NewRecordingBrowser(testingutil.MobileUserAgent)
		dispatcher := newDispatcher(browser, ledger)

		assert.True(t, dispatcher.Dispatch(ctx, introURL, nil))
		ledger.Reset()
		assert.True(t, dispatcher.Dispatch(ctx, introURL, nil))
	})

	t.Run("LedgerFailureDispatchesAnyway", func(t *testing.T) {
		browser := NewRecordingBrowser(testingutil.MobileUserAgent)
		dispatcher := newDispatcher(browser, failingLedger{})
		assert.True(t, dispatcher.Dispatch(ctx, introURL, nil))
		assert.True(t, dispatcher.Dispatch(ctx, introURL, nil))
	})
}

func TestRedisDispatchLedger(t *testing.T) {
	err := testingutil.TestWithRedis(func(tr *testingutil.TestRedis) error {
		ctx := context.Background()
		ledger := NewRedisDispatchLedger(tr.Client, tr.Prefix)

		ok, err := ledger.Claim(ctx, "user-1", introURL, 200*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = ledger.Claim(ctx, "user-1", introURL, 200*time.Millisecond)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = ledger.Claim(ctx, "user-2", introURL, 200*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, ok)

		time.Sleep(300 * time.Millisecond)
		ok, err = ledger.Claim(ctx, "user-1", introURL, 200*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, ok)
		return nil
	})
	if errors.Is(err, testingutil.ErrRedisUnavailable) {
		t.Skip("TEST_REDIS_URL not set")
	}
	require.NoError(t, err)
}
