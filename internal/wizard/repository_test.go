package wizard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bagsoflaundry.com/web/internal/session"
)

func newTestStore(t *testing.T) *session.CookieStore {
	t.Helper()
	store, err := session.NewCookieStore(session.Config{
		CookieName: "wizard_test",
		Secret:     []byte("wizard-repository-test-secret"),
		TTL:        time.Hour,
	})
	require.NoError(t, err)
	return store
}

// carry returns a request that presents the cookies set on rec.
func carry(rec *httptest.ResponseRecorder, method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestRepository_ReadEmpty(t *testing.T) {
	repo := NewRepository(newTestStore(t))
	st, err := repo.Read(httptest.NewRequest(http.MethodGet, "/start-basic", nil))
	require.NoError(t, err)
	require.True(t, st.Empty())
}

func TestRepository_WriteMergesAndRedirects(t *testing.T) {
	repo := NewRepository(newTestStore(t))

	rec := httptest.NewRecorder()
	patch := State{Address: &Address{Line1: "123 Main St", Postal: "48201"}, Date: "2025-06-01", Phone: "5551234"}
	require.NoError(t, repo.Write(rec, httptest.NewRequest(http.MethodPost, "/start-basic", nil), patch, PathOrderType))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, PathOrderType, rec.Header().Get("Location"))

	rec2 := httptest.NewRecorder()
	require.NoError(t, repo.Write(rec2, carry(rec, http.MethodPost, "/order-type"), State{OrderType: "small_bag"}, PathAddons))

	st, err := repo.Read(carry(rec2, http.MethodGet, "/addons"))
	require.NoError(t, err)
	require.Equal(t, "123 Main St", st.Address.Line1)
	require.Equal(t, "small_bag", st.OrderType)
}

func TestRepository_ClearThenReadIsEmpty(t *testing.T) {
	repo := NewRepository(newTestStore(t))

	rec := httptest.NewRecorder()
	require.NoError(t, repo.Write(rec, httptest.NewRequest(http.MethodPost, "/order-type", nil), State{OrderType: "small_bag"}, PathAddons))

	rec2 := httptest.NewRecorder()
	require.NoError(t, repo.Clear(rec2, carry(rec, http.MethodPost, "/start-over"), PathPickupDetails))
	require.Equal(t, PathPickupDetails, rec2.Header().Get("Location"))

	st, err := repo.Read(carry(rec2, http.MethodGet, "/start-basic"))
	require.NoError(t, err)
	require.True(t, st.Empty())
}

func TestRepository_UsesSessionFromContext(t *testing.T) {
	store := newTestStore(t)
	repo := NewRepository(store)

	sess, err := store.Get(context.Background(), "")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/addons", nil)
	req = req.WithContext(session.WithSession(req.Context(), store, sess))

	rec := httptest.NewRecorder()
	_, err = repo.Save(req.Context(), rec, req, State{Addons: &Addons{Rush: true}})
	require.NoError(t, err)

	var st State
	ok, err := sess.Get(SessionKey, &st)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, st.Addons.Rush)
	require.False(t, sess.Dirty())
	require.NotEmpty(t, rec.Header().Get("Set-Cookie"))
}

func TestRepository_CorruptEntryReadsEmpty(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.Get(context.Background(), "")
	require.NoError(t, err)
	require.NoError(t, sess.Set(SessionKey, []string{"not", "a", "draft"}))

	req := httptest.NewRequest(http.MethodGet, "/order-type", nil)
	req = req.WithContext(session.WithSession(req.Context(), store, sess))
	st, err := NewRepository(store).Read(req)
	require.NoError(t, err)
	require.True(t, st.Empty())
}

func TestRepository_HTMXRedirect(t *testing.T) {
	repo := NewRepository(newTestStore(t))
	req := httptest.NewRequest(http.MethodPost, "/order-type", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	require.NoError(t, repo.Write(rec, req, State{OrderType: "small_bag"}, PathAddons))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, PathAddons, rec.Header().Get("HX-Redirect"))
}

func TestRepository_OversizeDraftKeepsPrevious(t *testing.T) {
	store := newTestStore(t)
	repo := NewRepository(store)
	ctx := context.Background()

	sess, err := store.Get(ctx, "")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/addons", nil)
	req = req.WithContext(session.WithSession(req.Context(), store, sess))

	_, err = repo.Save(ctx, httptest.NewRecorder(), req, State{OrderType: "small_bag"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	huge := State{Addons: &Addons{Notes: strings.Repeat("<&>", 2000)}}
	err = repo.Write(rec, req, huge, PathCustomerDetails)
	require.ErrorIs(t, err, ErrDraftTooLarge)
	require.Empty(t, rec.Header().Get("Location"))
	require.Empty(t, rec.Header().Values("Set-Cookie"))

	st, err := repo.Read(req)
	require.NoError(t, err)
	require.Equal(t, "small_bag", st.OrderType)
	require.Nil(t, st.Addons)

	_, err = store.Commit(ctx, sess)
	require.NoError(t, err, "restored draft still fits")
}
