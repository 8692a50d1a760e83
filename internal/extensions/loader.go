// Package extensions loads community-contributed persona extensions and runs
// the one-time token redemption that creates them.
package extensions

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/workshop-concierge/internal/kvstore"
	"github.com/wolfman30/workshop-concierge/pkg/logging"
)

// Extension is one redeemed contribution. Immutable once stored.
type Extension struct {
	Content   string    `json:"content"`
	Winner    string    `json:"winner"`
	Timestamp time.Time `json:"timestamp"`
	Token     string    `json:"token"`
	Type      TokenType `json:"type,omitempty"`
}

// Collection is the stored document under a persona's namespace key.
type Collection struct {
	Extensions []Extension `json:"extensions"`
}

// Loader reads extension collections. Every call goes to the store.
type Loader struct {
	kv     kvstore.Store
	logger *logging.Logger
}

func NewLoader(kv kvstore.Store, logger *logging.Logger) *Loader {
	if kv == nil {
		kv = kvstore.Unavailable{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Loader{kv: kv, logger: logger}
}

// Load returns the collection stored under key. It never fails: an unavailable
// store, a missing key or an unreadable document all yield an empty collection.
func (l *Loader) Load(ctx context.Context, key string) Collection {
	var col Collection
	found, err := l.kv.Get(ctx, key, &col)
	if err != nil {
		l.logger.Warn("extensions: load failed, continuing without extensions", "key", key, "error", err)
		return Collection{Extensions: []Extension{}}
	}
	if !found || col.Extensions == nil {
		return Collection{Extensions: []Extension{}}
	}
	return col
}

// appendExtension adds ext at the end of the collection under key.
func (l *Loader) appendExtension(ctx context.Context, key string, ext Extension) error {
	var col Collection
	if _, err := l.kv.Get(ctx, key, &col); err != nil {
		return fmt.Errorf("extensions: load %s: %w", key, err)
	}
	col.Extensions = append(col.Extensions, ext)
	if err := l.kv.Set(ctx, key, col); err != nil {
		return fmt.Errorf("extensions: save %s: %w", key, err)
	}
	return nil
}
