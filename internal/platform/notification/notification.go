// Package notification delivers appointment messages to doctors and patients
// over Telegram, with template rendering and an in-memory delivery log.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Notification is a single outbound message.
type Notification struct {
	ID         string            `json:"id"`
	Recipient  string            `json:"recipient"`
	Body       string            `json:"body"`
	TemplateID string            `json:"template_id,omitempty"`
	Status     string            `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	SentAt     *time.Time        `json:"sent_at,omitempty"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Sender delivers a rendered message to a recipient chat.
type Sender interface {
	Send(ctx context.Context, chatID, text string) error
}

// Template defines a reusable message template.
type Template struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Body string `json:"body"`
}

// TemplateEngine manages message templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates
// pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]*Template)}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:   "appointment-doctor",
			Name: "Appointment (doctor copy)",
			Body: "You have an appointment with {{patient}} on {{datetime}}.",
		},
		{
			ID:   "appointment-patient",
			Name: "Appointment (patient copy)",
			Body: "Your appointment with Dr. {{doctor}} on {{datetime}} has been {{action}}.",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are
// left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (string, error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("template %q not found", templateID)
	}

	body := t.Body
	for k, v := range data {
		body = strings.ReplaceAll(body, "{{"+k+"}}", v)
	}
	return body, nil
}

// MockSender is a test double for Sender.
type MockSender struct {
	mu         sync.Mutex
	calls      []SendCall
	ShouldFail bool
	FailError  string
}

// SendCall records a single call to Send.
type SendCall struct {
	ChatID string
	Text   string
}

// Send records the call and optionally returns an error.
func (m *MockSender) Send(_ context.Context, chatID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, SendCall{ChatID: chatID, Text: text})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded calls.
func (m *MockSender) Calls() []SendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SendCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// AppointmentEvent carries the details needed to notify both parties of an
// appointment change.
type AppointmentEvent struct {
	DoctorUsername  string
	PatientUsername string
	DateTime        time.Time
	Action          string // "scheduled", "updated" or "canceled"
}

// Manager renders and dispatches notifications and keeps an in-memory log of
// every attempt.
type Manager struct {
	sender    Sender
	templates *TemplateEngine
	chatID    string
	mu        sync.RWMutex
	log       map[string]*Notification
}

// NewManager constructs a Manager that delivers to the given chat.
func NewManager(sender Sender, tpl *TemplateEngine, chatID string) *Manager {
	return &Manager{
		sender:    sender,
		templates: tpl,
		chatID:    chatID,
		log:       make(map[string]*Notification),
	}
}

// Send dispatches a notification, assigns an ID and timestamps, and records
// the result.
func (m *Manager) Send(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.CreatedAt = time.Now().UTC()
	n.Status = "pending"

	sendErr := m.sender.Send(ctx, n.Recipient, n.Body)
	if sendErr != nil {
		n.Status = "failed"
		n.Error = sendErr.Error()
	} else {
		n.Status = "sent"
		sentAt := time.Now().UTC()
		n.SentAt = &sentAt
	}

	m.mu.Lock()
	m.log[n.ID] = n
	m.mu.Unlock()

	return sendErr
}

// NotifyAppointment sends the doctor and patient copies for an appointment
// event. Both messages are attempted even if the first fails; the first error
// is returned.
func (m *Manager) NotifyAppointment(ctx context.Context, ev AppointmentEvent) error {
	when := ev.DateTime.Format("2006-01-02 15:04")

	doctorBody, err := m.templates.Render("appointment-doctor", map[string]string{
		"patient":  ev.PatientUsername,
		"datetime": when,
	})
	if err != nil {
		return err
	}
	patientBody, err := m.templates.Render("appointment-patient", map[string]string{
		"doctor":   ev.DoctorUsername,
		"datetime": when,
		"action":   ev.Action,
	})
	if err != nil {
		return err
	}

	firstErr := m.Send(ctx, &Notification{
		Recipient:  m.chatID,
		Body:       doctorBody,
		TemplateID: "appointment-doctor",
		Metadata:   map[string]string{"doctor": ev.DoctorUsername, "action": ev.Action},
	})
	if err := m.Send(ctx, &Notification{
		Recipient:  m.chatID,
		Body:       patientBody,
		TemplateID: "appointment-patient",
		Metadata:   map[string]string{"patient": ev.PatientUsername, "action": ev.Action},
	}); firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// History returns a copy of every recorded notification.
func (m *Manager) History() []*Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Notification, 0, len(m.log))
	for _, n := range m.log {
		cp := *n
		out = append(out, &cp)
	}
	return out
}
