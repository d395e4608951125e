package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"scamguard/internal/domain/models"
)

// memKV is an in-memory KeyValueStore
type memKV struct {
	mu     sync.Mutex
	hashes map[string]map[string]string
	sets   map[string]map[string]struct{}
	lists  map[string][]string
	fail   error
}

func newMemKV() *memKV {
	return &memKV{
		hashes: make(map[string]map[string]string),
		sets:   make(map[string]map[string]struct{}),
		lists:  make(map[string][]string),
	}
}

func (m *memKV) HSet(_ context.Context, key string, values ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for i := 0; i+1 < len(values); i += 2 {
		h[fmt.Sprint(values[i])] = fmt.Sprint(values[i+1])
	}
	return nil
}

func (m *memKV) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	out := make(map[string]string)
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *memKV) HDel(_ context.Context, key string, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	for _, f := range fields {
		delete(m.hashes[key], f)
	}
	return nil
}

func (m *memKV) SAdd(_ context.Context, key string, members ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	s, ok := m.sets[key]
	if !ok {
		s = make(map[string]struct{})
		m.sets[key] = s
	}
	for _, v := range members {
		s[fmt.Sprint(v)] = struct{}{}
	}
	return nil
}

func (m *memKV) SMembers(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	var out []string
	for v := range m.sets[key] {
		out = append(out, v)
	}
	return out, nil
}

func (m *memKV) LPushTrim(_ context.Context, key string, limit int64, values ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	for _, v := range values {
		m.lists[key] = append([]string{fmt.Sprint(v)}, m.lists[key]...)
	}
	if limit > 0 && int64(len(m.lists[key])) > limit {
		m.lists[key] = m.lists[key][:limit]
	}
	return nil
}

func (m *memKV) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	l := m.lists[key]
	if stop < 0 || stop >= int64(len(l)) {
		stop = int64(len(l)) - 1
	}
	if start > stop {
		return nil, nil
	}
	return append([]string(nil), l[start:stop+1]...), nil
}

var errStoreDown = errors.New("connection refused")

// fakeClock is a settable time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
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

// recordingPublisher captures alerts and events
type recordingPublisher struct {
	mu     sync.Mutex
	alerts []*models.GuardianAlert
	events []*models.RiskEvent
	err    error
}

func (p *recordingPublisher) PublishGuardianAlert(_ context.Context, a *models.GuardianAlert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.alerts = append(p.alerts, a)
	return nil
}

func (p *recordingPublisher) PublishRiskEvent(_ context.Context, e *models.RiskEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Alerts() []*models.GuardianAlert {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*models.GuardianAlert(nil), p.alerts...)
}

func (p *recordingPublisher) EventTypes() []models.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.EventType
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// memEvents is an in-memory EventRecorder and EventCounter
type memEvents struct {
	mu     sync.Mutex
	events []*models.RiskEvent
	err    error
}

func (m *memEvents) Insert(_ context.Context, e *models.RiskEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memEvents) CountByTypeSince(_ context.Context, since time.Time) ([]models.EventCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	type key struct {
		t models.EventType
		l models.RiskLevel
	}
	counts := make(map[key]int)
	var order []key
	for _, e := range m.events {
		if e.CreatedAt.Before(since) {
			continue
		}
		k := key{e.Type, e.RiskLevel}
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}
	out := make([]models.EventCount, 0, len(order))
	for _, k := range order {
		out = append(out, models.EventCount{Type: k.t, RiskLevel: k.l, Count: counts[k]})
	}
	return out, nil
}

// memContacts is an in-memory ContactStore
type memContacts struct {
	mu       sync.Mutex
	contacts map[string]models.TrustedContact
	err      error
}

func newMemContacts(numbers ...string) *memContacts {
	m := &memContacts{contacts: make(map[string]models.TrustedContact)}
	for _, n := range numbers {
		m.contacts[n] = models.TrustedContact{PhoneNumber: n}
	}
	return m
}

func (m *memContacts) List(context.Context) ([]models.TrustedContact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []models.TrustedContact
	for _, c := range m.contacts {
		out = append(out, c)
	}
	return out, nil
}

func (m *memContacts) Upsert(_ context.Context, c models.TrustedContact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.contacts[c.PhoneNumber] = c
	return nil
}

func (m *memContacts) Delete(_ context.Context, number string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.contacts, number)
	return nil
}
