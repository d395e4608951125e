package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"scamguard/internal/domain/models"
	"scamguard/pkg/logger"
)

// ContactStore persists the user's trusted contacts.
// repository.ContactRepository satisfies it.
type ContactStore interface {
	List(ctx context.Context) ([]models.TrustedContact, error)
	Upsert(ctx context.Context, c models.TrustedContact) error
	Delete(ctx context.Context, phoneNumber string) error
}

// operatorPrefix is the carrier header on Indian sender IDs, e.g. "VM-" or "JD-"
var operatorPrefix = regexp.MustCompile(`^[A-Z]{2}-`)

// SenderKey canonicalizes a sender for trust lookups: phone numbers become
// their last ten digits, sender IDs are upper-cased without operator prefix.
func SenderKey(sender string) string {
	key := NormalizeNumber(sender)
	return operatorPrefix.ReplaceAllString(key, "")
}

// TrustedSenderRegistry answers whether a sender is on the allow-list or in
// the contact list. The empty sender is never trusted.
type TrustedSenderRegistry struct {
	mu       sync.RWMutex
	allow    map[string]struct{}
	contacts map[string]models.TrustedContact
	repo     ContactStore
	logger   *logger.Logger
}

// NewTrustedSenderRegistry creates a registry over allowList. repo may be nil,
// in which case contacts live in memory only.
func NewTrustedSenderRegistry(allowList []string, repo ContactStore, log *logger.Logger) *TrustedSenderRegistry {
	r := &TrustedSenderRegistry{
		allow:    make(map[string]struct{}, len(allowList)),
		contacts: make(map[string]models.TrustedContact),
		repo:     repo,
		logger:   log.WithComponent("trusted-senders"),
	}
	for _, s := range allowList {
		if k := SenderKey(s); k != "" {
			r.allow[k] = struct{}{}
		}
	}
	return r
}

// IsTrusted reports whether identifier is allow-listed or a saved contact
func (r *TrustedSenderRegistry) IsTrusted(identifier string) bool {
	key := SenderKey(identifier)
	if key == "" {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.allow[key]; ok {
		return true
	}
	_, ok := r.contacts[key]
	return ok
}

// AddContact saves a contact and trusts it immediately
func (r *TrustedSenderRegistry) AddContact(ctx context.Context, c models.TrustedContact) (models.TrustedContact, error) {
	key := SenderKey(c.PhoneNumber)
	if key == "" {
		return models.TrustedContact{}, fmt.Errorf("%w: contact number is required", models.ErrInvalidInput)
	}
	c.PhoneNumber = key
	c.Name = strings.TrimSpace(c.Name)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if r.repo != nil {
		if err := r.repo.Upsert(ctx, c); err != nil {
			return models.TrustedContact{}, fmt.Errorf("failed to save contact: %w", err)
		}
	}

	r.mu.Lock()
	r.contacts[key] = c
	r.mu.Unlock()
	return c, nil
}

// RemoveContact deletes a contact
func (r *TrustedSenderRegistry) RemoveContact(ctx context.Context, number string) error {
	key := SenderKey(number)
	r.mu.RLock()
	_, ok := r.contacts[key]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: contact %s", models.ErrNotFound, number)
	}
	if r.repo != nil {
		if err := r.repo.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete contact: %w", err)
		}
	}

	r.mu.Lock()
	delete(r.contacts, key)
	r.mu.Unlock()
	return nil
}

// Contacts returns the cached contacts ordered by number
func (r *TrustedSenderRegistry) Contacts() []models.TrustedContact {
	r.mu.RLock()
	out := make([]models.TrustedContact, 0, len(r.contacts))
	for _, c := range r.contacts {
		out = append(out, c)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].PhoneNumber < out[j].PhoneNumber })
	return out
}

// Reload replaces the cached contacts with the repository's
func (r *TrustedSenderRegistry) Reload(ctx context.Context) error {
	if r.repo == nil {
		return nil
	}
	list, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("%w: load contacts: %v", models.ErrStoreUnavailable, err)
	}
	contacts := make(map[string]models.TrustedContact, len(list))
	for _, c := range list {
		if k := SenderKey(c.PhoneNumber); k != "" {
			contacts[k] = c
		}
	}

	r.mu.Lock()
	r.contacts = contacts
	r.mu.Unlock()
	r.logger.Info().Int("contacts", len(contacts)).Msg("trusted contacts loaded")
	return nil
}
