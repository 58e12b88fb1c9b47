// Package notify tells chat rooms and webhooks about deploy results.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/rowjay/lily-delivery/internal/config"
)

const (
	StatusSuccess = "success"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

type Event struct {
	Type          string    `json:"type"`
	Message       string    `json:"message"`
	Status        string    `json:"status"`
	Project       string    `json:"project"`
	Environment   string    `json:"environment"`
	Version       string    `json:"version,omitempty"`
	EntryDocument string    `json:"entry_document,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	EndedAt       time.Time `json:"ended_at"`
	Duration      string    `json:"duration"`
	Error         string    `json:"error,omitempty"`
}

// Text is the one line chat rendering of the event.
func (e Event) Text() string {
	text := fmt.Sprintf("[%s] %s", e.Status, e.Message)
	if e.Error != "" {
		text += ": " + e.Error
	}
	return text
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Multi sends to every target and joins their errors.
type Multi struct {
	Targets []Notifier
}

func (m Multi) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, target := range m.Targets {
		if target == nil {
			continue
		}
		if err := target.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Webhook struct {
	Name    string
	URL     string
	Headers map[string]string
	Client  *http.Client
}

func (w Webhook) Notify(ctx context.Context, event Event) error {
	return post(ctx, w.Client, "webhook "+w.Name, w.URL, w.Headers, event)
}

type Mattermost struct {
	Name   string
	URL    string
	Client *http.Client
}

func (m Mattermost) Notify(ctx context.Context, event Event) error {
	return post(ctx, m.Client, "mattermost "+m.Name, m.URL, nil, map[string]string{"text": event.Text()})
}

type Matrix struct {
	Name        string
	ServerURL   string
	AccessToken string
	RoomID      string
	Client      *http.Client
}

func (m Matrix) Notify(ctx context.Context, event Event) error {
	endpoint := fmt.Sprintf("%s/_matrix/client/v3/rooms/%s/send/m.room.message/%s",
		m.ServerURL, url.PathEscape(m.RoomID), uuid.NewString())
	payload := map[string]any{
		"msgtype": "m.text",
		"body":    event.Text(),
	}
	headers := map[string]string{"Authorization": "Bearer " + m.AccessToken}
	return postMethod(ctx, m.Client, http.MethodPut, "matrix "+m.Name, endpoint, headers, payload)
}

func FromConfig(cfg config.NotificationsConfig) Multi {
	var targets []Notifier
	for _, w := range cfg.Webhooks {
		targets = append(targets, Webhook{Name: w.Name, URL: w.URL, Headers: w.Headers})
	}
	for _, mm := range cfg.Mattermost {
		targets = append(targets, Mattermost{Name: mm.Name, URL: mm.URL})
	}
	for _, mx := range cfg.Matrix {
		targets = append(targets, Matrix{Name: mx.Name, ServerURL: mx.ServerURL, AccessToken: mx.AccessToken, RoomID: mx.RoomID})
	}
	return Multi{Targets: targets}
}

func post(ctx context.Context, client *http.Client, name, endpoint string, headers map[string]string, payload any) error {
	return postMethod(ctx, client, http.MethodPost, name, endpoint, headers, payload)
}

func postMethod(ctx context.Context, client *http.Client, method, name, endpoint string, headers map[string]string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if client == nil {
		client = httpClient()
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned %s", name, resp.Status)
	}
	return nil
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
