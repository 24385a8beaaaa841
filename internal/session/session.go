// Package session keeps the per-user dialog state between turns.
package session

import (
	"context"
	"errors"
	"time"

	"taskbot/internal/picker"
)

var ErrUnavailable = errors.New("session store unavailable")

// Session is the in-flight dialog of one user. An empty Flow means idle.
type Session struct {
	UserID    string            `json:"user_id"`
	Flow      string            `json:"flow,omitempty"`
	State     string            `json:"state,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Picker    *picker.State     `json:"picker,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func New(userID string) *Session {
	return &Session{UserID: userID, Fields: map[string]string{}}
}

func (s *Session) IsIdle() bool {
	return s.Flow == ""
}

// Start discards any in-flight data and enters the given flow.
func (s *Session) Start(flow, state string) {
	s.Flow = flow
	s.State = state
	s.Fields = map[string]string{}
	s.Picker = nil
}

func (s *Session) Reset() {
	s.Start("", "")
}

func (s *Session) Set(key, value string) {
	if s.Fields == nil {
		s.Fields = map[string]string{}
	}
	s.Fields[key] = value
}

func (s *Session) Get(key string) string {
	return s.Fields[key]
}

func (s *Session) clone() *Session {
	c := *s
	c.Fields = make(map[string]string, len(s.Fields))
	for k, v := range s.Fields {
		c.Fields[k] = v
	}
	if s.Picker != nil {
		p := *s.Picker
		if p.Hour != nil {
			h := *p.Hour
			p.Hour = &h
		}
		c.Picker = &p
	}
	return &c
}

// Store persists sessions. Get returns an idle session when none is stored.
// Put of an idle session removes it.
type Store interface {
	Get(ctx context.Context, userID string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Clear(ctx context.Context, userID string) error
}
