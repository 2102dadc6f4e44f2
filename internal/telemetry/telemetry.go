package telemetry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type EventType string

const (
	EmailOpen     EventType = "email_open"
	EmailClick    EventType = "email_click"
	PageView      EventType = "page_view"
	DocumentView  EventType = "document_view"
	MeetingAccept EventType = "meeting_accept"
)

func (t EventType) Valid() bool {
	switch t {
	case EmailOpen, EmailClick, PageView, DocumentView, MeetingAccept:
		return true
	}
	return false
}

// Event is one engagement signal reported by an outside tracker.
type Event struct {
	Type      EventType `json:"type"`
	DealID    string    `json:"deal_id"`
	ContactID string    `json:"contact_id,omitempty"`
	Page      string    `json:"page,omitempty"`
	At        time.Time `json:"at"`
}

var ErrInvalidEvent = errors.New("invalid telemetry event")

func (e Event) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	if strings.TrimSpace(e.DealID) == "" {
		return fmt.Errorf("%w: deal_id is required", ErrInvalidEvent)
	}
	if e.At.IsZero() {
		return fmt.Errorf("%w: at is required", ErrInvalidEvent)
	}
	return nil
}

// PricingClick reports whether the event is a view of a pricing page.
func (e Event) PricingClick() bool {
	return e.Type == PageView && strings.Contains(strings.ToLower(e.Page), "pricing")
}

// Source supplies the telemetry events recorded for a deal.
type Source interface {
	ForDeal(dealID string, since time.Time) []Event
}

// Log is an in-memory, concurrency-safe event log keyed by deal.
type Log struct {
	mu     sync.RWMutex
	byDeal map[string][]Event
}

func NewLog() *Log {
	return &Log{byDeal: make(map[string][]Event)}
}

func (l *Log) Append(events ...Event) error {
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range events {
		e.At = e.At.UTC()
		l.byDeal[e.DealID] = append(l.byDeal[e.DealID], e)
	}
	return nil
}

// ForDeal returns the events for dealID at or after since, oldest first.
func (l *Log) ForDeal(dealID string, since time.Time) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Event
	for _, e := range l.byDeal[dealID] {
		if !e.At.Before(since) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, events := range l.byDeal {
		n += len(events)
	}
	return n
}
