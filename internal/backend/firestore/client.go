// Package firestore implements the store.Store interface using Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"taskapi/internal/config"
	"taskapi/internal/store"
)

// OAuth scope for Cloud Firestore
const datastoreScope = "https://www.googleapis.com/auth/datastore"

// Store failures surface to the caller; aborted transactions are not retried.
var commitOptions = []firestore.TransactionOption{firestore.MaxAttempts(1)}

// Client implements store.Store using Cloud Firestore.
type Client struct {
	fs *firestore.Client
}

// New creates a Firestore client from a service-account key file.
// The project id comes from cfg or, when empty, from the key file.
func New(ctx context.Context, cfg config.FirestoreConfig) (*Client, error) {
	keyJSON, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", cfg.CredentialsFile, err)
	}

	creds, err := google.CredentialsFromJSON(ctx, keyJSON, datastoreScope)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", cfg.CredentialsFile, err)
	}

	projectID := cfg.ProjectID
	if projectID == "" {
		projectID = creds.ProjectID
	}
	if projectID == "" {
		return nil, fmt.Errorf("no project id in config or %s", cfg.CredentialsFile)
	}

	fs, err := firestore.NewClient(ctx, projectID, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &Client{fs: fs}, nil
}

// NewWithClient wraps an existing Firestore client (for testing against the emulator).
func NewWithClient(fs *firestore.Client) *Client {
	return &Client{fs: fs}
}

// Get implements store.Store.
func (c *Client) Get(ctx context.Context, collection, id string) (store.Document, error) {
	if err := store.CheckID(id); err != nil {
		return store.Document{}, err
	}

	snap, err := c.fs.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return store.Document{}, wrapError(err)
	}
	return store.Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

// Set implements store.Store.
func (c *Client) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if err := store.CheckID(id); err != nil {
		return err
	}
	_, err := c.fs.Collection(collection).Doc(id).Set(ctx, data)
	return wrapError(err)
}

// Update implements store.Store. Keys are Firestore field paths, so a dotted
// key updates a nested field.
func (c *Client) Update(ctx context.Context, collection, id string, data map[string]any) error {
	if err := store.CheckUpdate(id, data); err != nil {
		return err
	}
	_, err := c.fs.Collection(collection).Doc(id).Update(ctx, updates(data))
	return wrapError(err)
}

// Delete implements store.Store.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	if err := store.CheckID(id); err != nil {
		return err
	}
	_, err := c.fs.Collection(collection).Doc(id).Delete(ctx)
	return wrapError(err)
}

// Where implements store.Store.
func (c *Client) Where(ctx context.Context, collection, field string, value any) ([]store.Document, error) {
	snaps, err := c.fs.Collection(collection).Where(field, "==", value).Documents(ctx).GetAll()
	if err != nil {
		return nil, wrapError(err)
	}

	docs := make([]store.Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, store.Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return docs, nil
}

// Commit implements store.Store. All writes run in one transaction.
func (c *Client) Commit(ctx context.Context, b *store.Batch) error {
	if err := b.Validate(); err != nil {
		return err
	}

	err := c.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, w := range b.Writes() {
			ref := c.fs.Collection(w.Collection).Doc(w.ID)
			var err error
			switch w.Kind {
			case store.WriteSet:
				err = tx.Set(ref, w.Data)
			case store.WriteDelete:
				err = tx.Delete(ref)
			default:
				err = fmt.Errorf("unknown write kind %d", w.Kind)
			}
			if err != nil {
				return err
			}
		}
		return nil
	}, commitOptions...)
	return wrapError(err)
}

// Close implements store.Store.
func (c *Client) Close() error {
	return c.fs.Close()
}

func updates(data map[string]any) []firestore.Update {
	ups := make([]firestore.Update, 0, len(data))
	for k, v := range data {
		ups = append(ups, firestore.Update{Path: k, Value: v})
	}
	return ups
}

// wrapError translates Firestore errors into store errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || status.Code(err) == codes.DeadlineExceeded {
		return fmt.Errorf("request timed out: %w", err)
	}
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s: %w", status.Convert(err).Message(), store.ErrNotFound)
	}
	return err
}
