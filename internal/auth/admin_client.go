package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"studysync/internal/domain"
	"studysync/internal/domain/models"
	"studysync/internal/domain/services"
)

const (
	adminPageSize = 200
	adminMaxPages = 50
)

var _ services.IdentityResolver = (*AdminClient)(nil)

// ErrLookupTruncated means the user list was longer than the lookup is
// allowed to scan, so absence of a match proves nothing
var ErrLookupTruncated = errors.New("user lookup truncated")

// AdminClient talks to the Supabase Admin API. The server uses it to resolve
// invitee emails; the seed command uses it to manage demo users.
type AdminClient struct {
	supabaseURL string
	serviceKey  string
	httpClient  *http.Client
	maxPages    int
}

// NewAdminClient creates a new Supabase Admin API client.
// Requires the service role key (SUPABASE_KEY) for elevated permissions.
func NewAdminClient(supabaseURL, serviceKey string) *AdminClient {
	return &AdminClient{
		supabaseURL: strings.TrimRight(supabaseURL, "/"),
		serviceKey:  serviceKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxPages: adminMaxPages,
	}
}

// CreateUserRequest is the payload for creating a new user
type CreateUserRequest struct {
	Email        string                 `json:"email"`
	Password     string                 `json:"password"`
	EmailConfirm bool                   `json:"email_confirm"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
}

// UserResponse is a user as returned by the Admin API
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ListUsersResponse is the response from listing users
type ListUsersResponse struct {
	Users []UserResponse `json:"users"`
}

// LookupUserByEmail pages through the user list looking for email.
// Matching ignores case. Returns ErrNotFound only once the whole list has been
// scanned, and ErrLookupTruncated if the page limit ran out first.
func (c *AdminClient) LookupUserByEmail(ctx context.Context, email string) (*models.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	for page := 1; page <= c.maxPages; page++ {
		users, err := c.listUsers(ctx, page)
		if err != nil {
			return nil, err
		}
		for _, user := range users {
			if strings.ToLower(user.Email) == email {
				return &models.Identity{ID: user.ID, Email: user.Email}, nil
			}
		}
		if len(users) < adminPageSize {
			return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
		}
	}

	return nil, fmt.Errorf("user %s after %d pages: %w", email, c.maxPages, ErrLookupTruncated)
}

func (c *AdminClient) listUsers(ctx context.Context, page int) ([]UserResponse, error) {
	query := url.Values{}
	query.Set("page", fmt.Sprint(page))
	query.Set("per_page", fmt.Sprint(adminPageSize))
	endpoint := fmt.Sprintf("%s/auth/v1/admin/users?%s", c.supabaseURL, query.Encode())

	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create list request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("list users failed with status %d: %s", resp.StatusCode, string(body))
	}

	var listResp ListUsersResponse
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return nil, fmt.Errorf("failed to decode list response: %w", err)
	}
	return listResp.Users, nil
}

// DeleteUserByEmail finds a user by email and deletes them.
// This is idempotent - returns nil if the user doesn't exist.
func (c *AdminClient) DeleteUserByEmail(ctx context.Context, email string) error {
	user, err := c.LookupUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	endpoint := fmt.Sprintf("%s/auth/v1/admin/users/%s", c.supabaseURL, url.PathEscape(user.ID))
	req, err := c.newRequest(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete user failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// CreateUser creates a confirmed user with the specified email and password.
// Returns the user's UUID.
func (c *AdminClient) CreateUser(ctx context.Context, email, password string) (string, error) {
	payload := CreateUserRequest{
		Email:        email,
		Password:     password,
		EmailConfirm: true,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal create request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.supabaseURL+"/auth/v1/admin/users", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to create user: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create user failed with status %d: %s", resp.StatusCode, string(body))
	}

	var created UserResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("failed to decode create response: %w", err)
	}

	return created.ID, nil
}

func (c *AdminClient) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)
	return req, nil
}
