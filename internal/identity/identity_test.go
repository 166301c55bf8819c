package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveWithIdentity(t *testing.T, req *http.Request) (string, *httptest.ResponseRecorder) {
	t.Helper()
	var got string
	h := Middleware(true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = CallerIDFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return got, rec
}

func TestMiddlewareMintsCookie(t *testing.T) {
	t.Parallel()

	id, rec := serveWithIdentity(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if !generatedIDPattern.MatchString(id) {
		t.Fatalf("unexpected generated id %q", id)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CallerCookieName || cookies[0].Value != id {
		t.Fatalf("expected caller cookie for %q, got %+v", id, cookies)
	}
	if !cookies[0].HttpOnly {
		t.Fatal("caller cookie must be HttpOnly")
	}
}

func TestMiddlewareReusesCookie(t *testing.T) {
	t.Parallel()

	first, _ := serveWithIdentity(t, httptest.NewRequest(http.MethodGet, "/", nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CallerCookieName, Value: first})
	second, _ := serveWithIdentity(t, req)
	if second != first {
		t.Fatalf("expected cookie id %q to be reused, got %q", first, second)
	}
}

func TestMiddlewareRejectsForgedCookie(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CallerCookieName, Value: "caller_not-hex"})
	id, _ := serveWithIdentity(t, req)
	if id == "caller_not-hex" {
		t.Fatal("malformed cookie value must not be accepted")
	}
}

func TestMiddlewareHeaderWins(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CallerHeaderName, "tab-42")
	id, rec := serveWithIdentity(t, req)
	if id != "tab-42" {
		t.Fatalf("expected header caller id, got %q", id)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("header identity should not set a cookie")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CallerHeaderName, "bad id with spaces")
	id, _ = serveWithIdentity(t, req)
	if id == "bad id with spaces" {
		t.Fatal("invalid header value must be ignored")
	}
}

func TestIPFromRequest(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	if got := IPFromRequest(req); got != "10.1.2.3" {
		t.Fatalf("IPFromRequest() = %q", got)
	}
	req.RemoteAddr = "unix"
	if got := IPFromRequest(req); got != "unix" {
		t.Fatalf("IPFromRequest() = %q", got)
	}
}
