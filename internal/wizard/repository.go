package wizard

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"bagsoflaundry.com/web/internal/platform/httpx"
	"bagsoflaundry.com/web/internal/session"
)

// SessionKey is the session entry holding the draft.
const SessionKey = "wizard"

// ErrDraftTooLarge reports that the merged draft no longer fits in the session. The
// previous draft is left in place.
var ErrDraftTooLarge = errors.New("wizard: draft too large for session")

// Repository reads and writes the draft in the request's session. When the session
// middleware already attached a session, that one is used; otherwise the repository
// decodes the Cookie header itself.
type Repository struct {
	store session.Store
}

// NewRepository returns a repository backed by store.
func NewRepository(store session.Store) *Repository {
	return &Repository{store: store}
}

func (r *Repository) session(req *http.Request) (*session.Session, session.Store, error) {
	ctx := req.Context()
	if sess, ok := session.FromContext(ctx); ok {
		store, ok := session.StoreFromContext(ctx)
		if !ok {
			store = r.store
		}
		return sess, store, nil
	}
	if r.store == nil {
		return nil, nil, errors.New("wizard: no session store configured")
	}
	sess, err := r.store.Get(ctx, req.Header.Get("Cookie"))
	if err != nil {
		return nil, nil, fmt.Errorf("wizard: load session: %w", err)
	}
	return sess, r.store, nil
}

// Read returns the current draft. An absent or undecodable entry is the empty draft.
func (r *Repository) Read(req *http.Request) (State, error) {
	sess, _, err := r.session(req)
	if err != nil {
		return State{}, err
	}
	return stateOf(sess), nil
}

func stateOf(sess *session.Session) State {
	var st State
	if ok, err := sess.Get(SessionKey, &st); !ok || err != nil {
		return State{}
	}
	return st
}

// Write merges patch into the draft, persists the session, and redirects to next.
func (r *Repository) Write(w http.ResponseWriter, req *http.Request, patch State, next string) error {
	if _, err := r.Save(req.Context(), w, req, patch); err != nil {
		return err
	}
	httpx.Redirect(w, req, next)
	return nil
}

// Save merges patch into the draft and persists the session without redirecting.
// It returns the merged draft.
func (r *Repository) Save(ctx context.Context, w http.ResponseWriter, req *http.Request, patch State) (State, error) {
	sess, store, err := r.session(req)
	if err != nil {
		return State{}, err
	}
	current, had := stateOf(sess), sess.Has(SessionKey)
	merged := Merge(current, patch)
	if err := sess.Set(SessionKey, merged); err != nil {
		return State{}, err
	}
	if err := session.Save(ctx, w, store, sess); err != nil {
		if errors.Is(err, session.ErrTooLarge) {
			restore(sess, current, had)
			return State{}, fmt.Errorf("%w: %v", ErrDraftTooLarge, err)
		}
		return State{}, fmt.Errorf("wizard: commit session: %w", err)
	}
	return merged, nil
}

func restore(sess *session.Session, previous State, had bool) {
	if !had {
		sess.Unset(SessionKey)
		return
	}
	_ = sess.Set(SessionKey, previous)
}

// Clear removes the draft, persists the session, and redirects to redirectTo.
func (r *Repository) Clear(w http.ResponseWriter, req *http.Request, redirectTo string) error {
	sess, store, err := r.session(req)
	if err != nil {
		return err
	}
	sess.Unset(SessionKey)
	if err := session.Save(req.Context(), w, store, sess); err != nil {
		return fmt.Errorf("wizard: commit session: %w", err)
	}
	httpx.Redirect(w, req, redirectTo)
	return nil
}
