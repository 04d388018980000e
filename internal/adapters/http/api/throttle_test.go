package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	api "github.com/pitchline/pitchline/internal/adapters/http/api"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeClock is a controllable time source for throttle tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func TestThrottleAllow(t *testing.T) {
	Convey("Given a throttle of 3 requests per second", t, func() {
		clock := &fakeClock{now: time.Unix(1000, 0)}
		th := api.NewThrottle(
			api.WithThrottleWindow(time.Second),
			api.WithThrottleMax(3),
			api.WithThrottleClock(clock.Now),
		)

		Convey("When one origin spends its budget", func() {
			for i := 0; i < 3; i++ {
				ok, _ := th.Allow("10.0.0.1")
				So(ok, ShouldBeTrue)
			}

			Convey("Then the fourth request is refused with a retry hint", func() {
				ok, retry := th.Allow("10.0.0.1")
				So(ok, ShouldBeFalse)
				So(retry, ShouldBeGreaterThan, 0)
				So(retry, ShouldBeLessThanOrEqualTo, time.Second)
			})

			Convey("And a different origin is unaffected", func() {
				ok, _ := th.Allow("10.0.0.2")
				So(ok, ShouldBeTrue)
			})

			Convey("And the budget recovers as the window slides", func() {
				clock.advance(1100 * time.Millisecond)
				ok, _ := th.Allow("10.0.0.1")
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When requests straddle the window boundary", func() {
			ok, _ := th.Allow("10.0.0.3")
			So(ok, ShouldBeTrue)
			clock.advance(600 * time.Millisecond)
			ok, _ = th.Allow("10.0.0.3")
			So(ok, ShouldBeTrue)
			ok, _ = th.Allow("10.0.0.3")
			So(ok, ShouldBeTrue)

			Convey("Then the next is refused until the oldest hit expires", func() {
				ok, _ := th.Allow("10.0.0.3")
				So(ok, ShouldBeFalse)

				clock.advance(500 * time.Millisecond)
				ok, _ = th.Allow("10.0.0.3")
				So(ok, ShouldBeTrue)
			})
		})
	})
}

func TestThrottleMiddleware(t *testing.T) {
	Convey("Given a throttled handler", t, func() {
		clock := &fakeClock{now: time.Unix(2000, 0)}
		th := api.NewThrottle(
			api.WithThrottleWindow(time.Second),
			api.WithThrottleMax(1),
			api.WithThrottleClock(clock.Now),
		)
		handler := th.Middleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		call := func(remote, forwarded string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/simulate", nil)
			req.RemoteAddr = remote
			if forwarded != "" {
				req.Header.Set("X-Forwarded-For", forwarded)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)
			return rec
		}

		Convey("When the same client calls twice in one window", func() {
			So(call("192.0.2.1:1234", "").Code, ShouldEqual, http.StatusOK)
			rec := call("192.0.2.1:5678", "")

			Convey("Then the second call gets 429 with Retry-After", func() {
				So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
				So(rec.Header().Get("Retry-After"), ShouldNotBeEmpty)
				So(rec.Body.String(), ShouldContainSubstring, "throttled")
			})
		})

		Convey("When clients arrive through a proxy", func() {
			So(call("10.0.0.9:1111", "203.0.113.5").Code, ShouldEqual, http.StatusOK)

			Convey("Then origins are keyed by the forwarded address", func() {
				// Same proxy, different client: allowed.
				So(call("10.0.0.9:1111", "203.0.113.6").Code, ShouldEqual, http.StatusOK)
				// Same forwarded client: throttled.
				So(call("10.0.0.9:2222", "203.0.113.5, 10.0.0.9").Code, ShouldEqual, http.StatusTooManyRequests)
			})
		})
	})
}
