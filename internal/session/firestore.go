package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultFirestoreCollection = "wizard_sessions"

// FirestoreBackend stores one document per session. Expired documents are ignored on read;
// a Firestore TTL policy on expiresAt removes them eventually.
type FirestoreBackend struct {
	client     *firestore.Client
	collection string
	now        func() time.Time
}

type firestoreDoc struct {
	Data      string    `firestore:"data"`
	CreatedAt time.Time `firestore:"createdAt"`
	ExpiresAt time.Time `firestore:"expiresAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// NewFirestoreBackend wraps client. An empty collection uses "wizard_sessions".
func NewFirestoreBackend(client *firestore.Client, collection string) *FirestoreBackend {
	collection = strings.TrimSpace(collection)
	if collection == "" {
		collection = defaultFirestoreCollection
	}
	return &FirestoreBackend{client: client, collection: collection, now: time.Now}
}

func (b *FirestoreBackend) doc(id string) *firestore.DocumentRef {
	return b.client.Collection(b.collection).Doc(id)
}

// Load implements Backend.
func (b *FirestoreBackend) Load(ctx context.Context, id string) (Record, error) {
	snap, err := b.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("firestore get: %w", err)
	}
	var doc firestoreDoc
	if err := snap.DataTo(&doc); err != nil {
		return Record{}, ErrNotFound
	}
	if !doc.ExpiresAt.IsZero() && !b.now().Before(doc.ExpiresAt) {
		return Record{}, ErrNotFound
	}
	rec := Record{CreatedAt: doc.CreatedAt, ExpiresAt: doc.ExpiresAt}
	if doc.Data != "" {
		if err := json.Unmarshal([]byte(doc.Data), &rec.Values); err != nil {
			return Record{}, ErrNotFound
		}
	}
	return rec, nil
}

// Save implements Backend.
func (b *FirestoreBackend) Save(ctx context.Context, id string, rec Record, ttl time.Duration) error {
	raw, err := json.Marshal(rec.Values)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	now := b.now().UTC()
	expires := rec.ExpiresAt
	if ttl > 0 {
		expires = now.Add(ttl)
	}
	doc := firestoreDoc{
		Data:      string(raw),
		CreatedAt: rec.CreatedAt,
		ExpiresAt: expires,
		UpdatedAt: now,
	}
	if _, err := b.doc(id).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore set: %w", err)
	}
	return nil
}

// Delete implements Backend.
func (b *FirestoreBackend) Delete(ctx context.Context, id string) error {
	if _, err := b.doc(id).Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("firestore delete: %w", err)
	}
	return nil
}
