package notification_test

import (
	"context"
	"errors"
	"sync"

	"github.com/wordaddict/finance-sub001/internal/notification"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []notification.Email
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg notification.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) Sent() []notification.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notification.Email(nil), m.sent...)
}

type recordingSMS struct {
	mu   sync.Mutex
	sent []notification.SMS
}

func (s *recordingSMS) SendSMS(_ context.Context, msg notification.SMS) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSMS) Sent() []notification.SMS {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notification.SMS(nil), s.sent...)
}

// syncQueue records jobs without a worker pool.
type syncQueue struct {
	jobs []notification.Job
	full bool
}

func (q *syncQueue) Enqueue(job notification.Job) bool {
	if q.full {
		return false
	}
	q.jobs = append(q.jobs, job)
	return true
}

type fakeDirectory struct {
	contacts map[string]notification.Contact
	admins   []notification.Contact
}

func (d *fakeDirectory) ContactByID(_ context.Context, id string) (*notification.Contact, error) {
	c, ok := d.contacts[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &c, nil
}

func (d *fakeDirectory) ActiveAdminContacts(context.Context) ([]notification.Contact, error) {
	return d.admins, nil
}
