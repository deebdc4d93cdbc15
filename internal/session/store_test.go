package session

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}

func testConfig(clock *fixedClock) Config {
	return Config{
		CookieName: "test_session",
		Secret:     []byte("test-secret-test-secret-test-secret"),
		TTL:        time.Hour,
		Now:        clock.Now,
	}
}

func parseSetCookie(t *testing.T, header string) *http.Cookie {
	t.Helper()
	resp := http.Response{Header: http.Header{"Set-Cookie": {header}}}
	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func cookieHeader(c *http.Cookie) string {
	return c.Name + "=" + c.Value
}

type wizardish struct {
	Phone string `json:"phone"`
}

func TestCookieStore_RoundTrip(t *testing.T) {
	clock := &fixedClock{current: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	store, err := NewCookieStore(testConfig(clock))
	require.NoError(t, err)
	ctx := context.Background()

	sess, err := store.Get(ctx, "")
	require.NoError(t, err)
	require.True(t, sess.IsNew())
	require.NotEmpty(t, sess.ID())
	require.NoError(t, sess.Set("wizard", wizardish{Phone: "313-555-0100"}))
	require.True(t, sess.Dirty())

	header, err := store.Commit(ctx, sess)
	require.NoError(t, err)
	require.False(t, sess.Dirty())

	c := parseSetCookie(t, header)
	require.Equal(t, "test_session", c.Name)
	require.True(t, c.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, c.SameSite)
	require.Equal(t, 3600, c.MaxAge)
	require.False(t, c.Secure)

	loaded, err := store.Get(ctx, "other=1; "+cookieHeader(c))
	require.NoError(t, err)
	require.Equal(t, sess.ID(), loaded.ID())
	require.False(t, loaded.IsNew())

	var got wizardish
	ok, err := loaded.Get("wizard", &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "313-555-0100", got.Phone)
}

func TestCookieStore_TamperedCookieYieldsEmptySession(t *testing.T) {
	clock := &fixedClock{current: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	store, err := NewCookieStore(testConfig(clock))
	require.NoError(t, err)
	ctx := context.Background()

	sess, _ := store.Get(ctx, "")
	require.NoError(t, sess.Set("wizard", wizardish{Phone: "1234567"}))
	header, err := store.Commit(ctx, sess)
	require.NoError(t, err)
	c := parseSetCookie(t, header)

	for _, value := range []string{
		c.Value[:len(c.Value)-2] + "xx",
		"not-a-cookie",
		"",
	} {
		loaded, err := store.Get(ctx, "test_session="+value)
		require.NoError(t, err)
		require.True(t, loaded.IsNew())
		require.False(t, loaded.Has("wizard"))
	}
}

func TestCookieStore_ForeignSecretRejected(t *testing.T) {
	clock := &fixedClock{current: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	store, err := NewCookieStore(testConfig(clock))
	require.NoError(t, err)

	other := testConfig(clock)
	other.Secret = []byte("a-completely-different-secret")
	forger, err := NewCookieStore(other)
	require.NoError(t, err)

	ctx := context.Background()
	sess, _ := forger.Get(ctx, "")
	require.NoError(t, sess.Set("wizard", wizardish{Phone: "1234567"}))
	header, err := forger.Commit(ctx, sess)
	require.NoError(t, err)

	loaded, err := store.Get(ctx, cookieHeader(parseSetCookie(t, header)))
	require.NoError(t, err)
	require.False(t, loaded.Has("wizard"))
}

func TestCookieStore_Destroy(t *testing.T) {
	clock := &fixedClock{current: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	store, err := NewCookieStore(testConfig(clock))
	require.NoError(t, err)
	ctx := context.Background()

	sess, _ := store.Get(ctx, "")
	require.NoError(t, sess.Set("wizard", wizardish{Phone: "1234567"}))
	header, err := store.Destroy(ctx, sess)
	require.NoError(t, err)

	c := parseSetCookie(t, header)
	require.Equal(t, -1, c.MaxAge)
	require.Empty(t, c.Value)
	require.False(t, sess.Has("wizard"))
	require.True(t, sess.Destroyed())
}

func TestNewCookieStore_RequiresSecret(t *testing.T) {
	_, err := NewCookieStore(Config{})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDeriveKeys_Deterministic(t *testing.T) {
	h1, b1, err := DeriveKeys([]byte("secret"))
	require.NoError(t, err)
	h2, b2, err := DeriveKeys([]byte("secret"))
	require.NoError(t, err)
	require.Equal(t, h1, h2)
	require.Equal(t, b1, b2)
	require.Len(t, h1, 32)
	require.Len(t, b1, 32)
	require.NotEqual(t, h1, b1)
}

func TestSession_UnsetAndCorruptValue(t *testing.T) {
	sess := newSession("id", time.Now())
	sess.Unset("missing")
	require.False(t, sess.Dirty())

	sess.values["wizard"] = []byte(`"not an object"`)
	var dst wizardish
	ok, err := sess.Get("wizard", &dst)
	require.True(t, ok)
	require.Error(t, err)

	sess.Unset("wizard")
	require.True(t, sess.Dirty())
	require.False(t, sess.Has("wizard"))
}

func TestServerStore_MemoryBackend(t *testing.T) {
	clock := &fixedClock{current: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	backend := NewMemoryBackend(clock.Now)
	store, err := NewServerStore(testConfig(clock), backend)
	require.NoError(t, err)
	ctx := context.Background()

	sess, err := store.Get(ctx, "")
	require.NoError(t, err)
	require.NoError(t, sess.Set("wizard", wizardish{Phone: "5551234"}))
	header, err := store.Commit(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, 1, backend.Len())

	c := parseSetCookie(t, header)
	require.NotContains(t, c.Value, "5551234")

	loaded, err := store.Get(ctx, cookieHeader(c))
	require.NoError(t, err)
	require.Equal(t, sess.ID(), loaded.ID())
	var got wizardish
	ok, err := loaded.Get("wizard", &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "5551234", got.Phone)

	clock.current = clock.current.Add(2 * time.Hour)
	expired, err := store.Get(ctx, cookieHeader(c))
	require.NoError(t, err)
	require.True(t, expired.IsNew())
	require.False(t, expired.Has("wizard"))
}

func TestServerStore_DestroyRemovesRecord(t *testing.T) {
	clock := &fixedClock{current: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	backend := NewMemoryBackend(clock.Now)
	store, err := NewServerStore(testConfig(clock), backend)
	require.NoError(t, err)
	ctx := context.Background()

	sess, _ := store.Get(ctx, "")
	require.NoError(t, sess.Set("k", 1))
	header, err := store.Commit(ctx, sess)
	require.NoError(t, err)

	sess.Destroy()
	expired, err := store.Commit(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, -1, parseSetCookie(t, expired).MaxAge)
	require.Equal(t, 0, backend.Len())

	loaded, err := store.Get(ctx, cookieHeader(parseSetCookie(t, header)))
	require.NoError(t, err)
	require.True(t, loaded.IsNew())
}

type failingBackend struct{ MemoryBackend }

func (*failingBackend) Load(context.Context, string) (Record, error) {
	return Record{}, errBackendDown
}

var errBackendDown = &backendErr{"backend down"}

type backendErr struct{ msg string }

func (e *backendErr) Error() string { return e.msg }

func TestServerStore_BackendErrorSurfaces(t *testing.T) {
	clock := &fixedClock{current: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	good, err := NewServerStore(testConfig(clock), NewMemoryBackend(clock.Now))
	require.NoError(t, err)
	ctx := context.Background()
	sess, _ := good.Get(ctx, "")
	header, err := good.Commit(ctx, sess)
	require.NoError(t, err)

	bad, err := NewServerStore(testConfig(clock), &failingBackend{})
	require.NoError(t, err)
	_, err = bad.Get(ctx, cookieHeader(parseSetCookie(t, header)))
	require.ErrorIs(t, err, errBackendDown)
	require.True(t, strings.Contains(err.Error(), "backend down"))
}

func TestCookieStore_OversizeCommitIsTooLarge(t *testing.T) {
	clock := &fixedClock{current: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	store, err := NewCookieStore(testConfig(clock))
	require.NoError(t, err)
	ctx := context.Background()

	sess, _ := store.Get(ctx, "")
	require.NoError(t, sess.Set("wizard", wizardish{Phone: strings.Repeat("&", 1000)}))
	_, err = store.Commit(ctx, sess)
	require.ErrorIs(t, err, ErrTooLarge)
	require.True(t, sess.Dirty())

	require.NoError(t, sess.Set("wizard", wizardish{Phone: "313-555-0100"}))
	header, err := store.Commit(ctx, sess)
	require.NoError(t, err)
	c := parseSetCookie(t, header)
	require.LessOrEqual(t, len(c.Name)+1+len(c.Value), 4096)
}

func TestServerStore_RegenerateReplacesRecord(t *testing.T) {
	clock := &fixedClock{current: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	backend := NewMemoryBackend(clock.Now)
	store, err := NewServerStore(testConfig(clock), backend)
	require.NoError(t, err)
	ctx := context.Background()

	sess, _ := store.Get(ctx, "")
	require.NoError(t, sess.Set("wizard", wizardish{Phone: "5551234"}))
	header, err := store.Commit(ctx, sess)
	require.NoError(t, err)
	before := parseSetCookie(t, header)
	oldID := sess.ID()

	sess.Regenerate()
	require.NotEqual(t, oldID, sess.ID())
	require.True(t, sess.Dirty())
	header, err = store.Commit(ctx, sess)
	require.NoError(t, err)
	after := parseSetCookie(t, header)
	require.NotEqual(t, before.Value, after.Value)
	require.Equal(t, 1, backend.Len())

	_, err = backend.Load(ctx, oldID)
	require.ErrorIs(t, err, ErrNotFound)

	stale, err := store.Get(ctx, cookieHeader(before))
	require.NoError(t, err)
	require.True(t, stale.IsNew())
	require.False(t, stale.Has("wizard"))

	current, err := store.Get(ctx, cookieHeader(after))
	require.NoError(t, err)
	require.Equal(t, sess.ID(), current.ID())
	require.True(t, current.Has("wizard"))
}

func TestMemoryBackend_SaveSweepsExpiredRecords(t *testing.T) {
	clock := &fixedClock{current: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	backend := NewMemoryBackend(clock.Now)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, backend.Save(ctx, id, Record{}, time.Minute))
	}
	require.Equal(t, 3, backend.Len())

	clock.current = clock.current.Add(30 * time.Second)
	require.NoError(t, backend.Save(ctx, "d", Record{}, time.Hour))
	require.Equal(t, 4, backend.Len(), "nothing expired yet")

	clock.current = clock.current.Add(2 * time.Minute)
	require.NoError(t, backend.Save(ctx, "e", Record{}, time.Hour))
	require.Equal(t, 2, backend.Len())
	_, err := backend.Load(ctx, "d")
	require.NoError(t, err)
}
