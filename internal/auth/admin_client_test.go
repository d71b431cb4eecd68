package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studysync/internal/domain"
)

// fakeAdminAPI serves a paginated user list the way GoTrue does
func fakeAdminAPI(t *testing.T, users []UserResponse) (*httptest.Server, *[]string) {
	t.Helper()
	var deleted []string

	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/v1/admin/users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		assert.Equal(t, "service-key", r.Header.Get("apikey"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		start := (page - 1) * perPage
		end := start + perPage
		if start > len(users) {
			start = len(users)
		}
		if end > len(users) {
			end = len(users)
		}
		_ = json.NewEncoder(w).Encode(ListUsersResponse{Users: users[start:end]})
	})
	mux.HandleFunc("DELETE /auth/v1/admin/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		deleted = append(deleted, r.PathValue("id"))
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /auth/v1/admin/users", func(w http.ResponseWriter, r *http.Request) {
		var req CreateUserRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.EmailConfirm)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(UserResponse{ID: "new-id", Email: req.Email})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &deleted
}

func manyUsers(n int) []UserResponse {
	users := make([]UserResponse, 0, n)
	for i := 0; i < n; i++ {
		users = append(users, UserResponse{ID: fmt.Sprintf("id-%d", i), Email: fmt.Sprintf("user%d@example.com", i)})
	}
	return users
}

func TestLookupUserByEmail(t *testing.T) {
	users := append(manyUsers(adminPageSize+5), UserResponse{ID: "bob-id", Email: "Bob@Example.com"})
	srv, _ := fakeAdminAPI(t, users)
	client := NewAdminClient(srv.URL+"/", "service-key")

	tests := []struct {
		name    string
		email   string
		wantID  string
		wantErr error
	}{
		{name: "first page", email: "user3@example.com", wantID: "id-3"},
		{name: "second page", email: fmt.Sprintf("user%d@example.com", adminPageSize+1), wantID: fmt.Sprintf("id-%d", adminPageSize+1)},
		{name: "case insensitive", email: "  bob@EXAMPLE.com ", wantID: "bob-id"},
		{name: "unknown", email: "nobody@example.com", wantErr: domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, err := client.LookupUserByEmail(context.Background(), tt.email)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, identity.ID)
		})
	}
}

func TestLookupUserByEmail_PageLimit(t *testing.T) {
	users := append(manyUsers(2*adminPageSize), UserResponse{ID: "late-id", Email: "late@example.com"})
	srv, _ := fakeAdminAPI(t, users)

	client := NewAdminClient(srv.URL, "service-key")
	client.maxPages = 2

	_, err := client.LookupUserByEmail(context.Background(), "late@example.com")
	require.ErrorIs(t, err, ErrLookupTruncated)
	assert.NotErrorIs(t, err, domain.ErrNotFound, "an unscanned page is not proof of absence")

	client.maxPages = 3
	identity, err := client.LookupUserByEmail(context.Background(), "late@example.com")
	require.NoError(t, err)
	assert.Equal(t, "late-id", identity.ID)
}

func TestLookupUserByEmail_ExactPageMultiple(t *testing.T) {
	srv, _ := fakeAdminAPI(t, manyUsers(adminPageSize))
	client := NewAdminClient(srv.URL, "service-key")
	client.maxPages = 2

	_, err := client.LookupUserByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLookupUserByEmail_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	_, err := NewAdminClient(srv.URL, "service-key").LookupUserByEmail(context.Background(), "a@example.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "status 500")
}

func TestDeleteUserByEmail(t *testing.T) {
	srv, deleted := fakeAdminAPI(t, []UserResponse{{ID: "alice-id", Email: "alice@example.com"}})
	client := NewAdminClient(srv.URL, "service-key")

	require.NoError(t, client.DeleteUserByEmail(context.Background(), "alice@example.com"))
	require.NoError(t, client.DeleteUserByEmail(context.Background(), "ghost@example.com"))
	assert.Equal(t, []string{"alice-id"}, *deleted)
}

func TestCreateUser(t *testing.T) {
	srv, _ := fakeAdminAPI(t, nil)
	client := NewAdminClient(srv.URL, "service-key")

	id, err := client.CreateUser(context.Background(), "carol@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "new-id", id)
}
