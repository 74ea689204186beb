// Package httpapi реализует порт RemoteAPI поверх JSON REST API сервиса
// заметок.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"notesync/internal/sync/domain/entities"
	"notesync/internal/sync/ports/services"
)

// Ограничение на размер читаемого тела ошибки.
const maxErrorBody = 4 << 10

// Client - HTTP-клиент удалённого API заметок.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient создает клиент удалённого API.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Ping проверяет доступность сервиса; используется пробой связности.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// CreateNote создает заметку на сервере.
func (c *Client) CreateNote(ctx context.Context, payload entities.Payload) (*entities.Note, error) {
	var note entities.Note
	if err := c.do(ctx, http.MethodPost, "/api/v1/notes", payload, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// UpdateNote обновляет заметку на сервере.
func (c *Client) UpdateNote(ctx context.Context, id string, payload entities.Payload) (*entities.Note, error) {
	var note entities.Note
	if err := c.do(ctx, http.MethodPatch, "/api/v1/notes/"+id, payload, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// DeleteNote удаляет заметку на сервере.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/notes/"+id, nil, nil)
}

// ListNotes возвращает удалённую коллекцию заметок.
func (c *Client) ListNotes(ctx context.Context) ([]*entities.Note, error) {
	var notes []*entities.Note
	if err := c.do(ctx, http.MethodGet, "/api/v1/notes", nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// CreateFolder создает папку на сервере.
func (c *Client) CreateFolder(ctx context.Context, payload entities.Payload) (*entities.Folder, error) {
	var folder entities.Folder
	if err := c.do(ctx, http.MethodPost, "/api/v1/folders", payload, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

// UpdateFolder обновляет папку на сервере.
func (c *Client) UpdateFolder(ctx context.Context, id string, payload entities.Payload) (*entities.Folder, error) {
	var folder entities.Folder
	if err := c.do(ctx, http.MethodPatch, "/api/v1/folders/"+id, payload, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

// DeleteFolder удаляет папку на сервере.
func (c *Client) DeleteFolder(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/folders/"+id, nil, nil)
}

// ListFolders возвращает удалённую коллекцию папок.
func (c *Client) ListFolders(ctx context.Context) ([]*entities.Folder, error) {
	var folders []*entities.Folder
	if err := c.do(ctx, http.MethodGet, "/api/v1/folders", nil, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// do выполняет один HTTP-запрос. Ответ вне диапазона 2xx превращается
// в *services.APIError с кодом состояния; транспортные ошибки
// возвращаются как есть (классифицируются как временные).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &services.APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
