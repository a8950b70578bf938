package meteo_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airbridge/airbridge/internal/meteo"
)

const sessionCookie = ".AspNetCore.Cookies"

// destinationStub is an httptest handler mimicking the storage API:
// login issues the session cookie, list and create require it.
type destinationStub struct {
	mux           *http.ServeMux
	loginCount    int
	createCount   int
	rows          []map[string]any
	rejectLogin   bool
	createStatus  int // 0 means 200
	cookieCounter int
}

func newDestinationStub() *destinationStub {
	s := &destinationStub{mux: http.NewServeMux()}

	s.mux.HandleFunc("/api/Account/login", func(w http.ResponseWriter, r *http.Request) {
		s.loginCount++
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if s.rejectLogin || creds["account"] != "station" || creds["password"] != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		s.cookieCounter++
		http.SetCookie(w, &http.Cookie{
			Name:  sessionCookie,
			Value: fmt.Sprintf("chunk-%d", s.cookieCounter),
			Path:  "/",
		})
		w.WriteHeader(http.StatusOK)
	})

	s.mux.HandleFunc("/api/AirQuality/list", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(sessionCookie); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		rows := s.rows
		if rows == nil {
			rows = []map[string]any{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"rows": rows})
	})

	s.mux.HandleFunc("/api/AirQuality", func(w http.ResponseWriter, r *http.Request) {
		s.createCount++
		if _, err := r.Cookie(sessionCookie); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if s.createStatus != 0 {
			w.WriteHeader(s.createStatus)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	return s
}

func newTestClient(t *testing.T, stub *destinationStub) (*meteo.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(stub.mux)
	t.Cleanup(server.Close)

	client, err := meteo.NewClient(meteo.ClientConfig{
		BaseURL:     server.URL,
		Credentials: meteo.Credentials{Account: "station", Password: "s3cret"},
	})
	require.NoError(t, err)
	return client, server
}

func TestClient_Login(t *testing.T) {
	stub := newDestinationStub()
	client, _ := newTestClient(t, stub)

	require.Nil(t, client.Session())

	session, err := client.Login(context.Background())
	require.NoError(t, err)
	assert.False(t, session.AuthenticatedAt.IsZero())
	assert.Equal(t, 1, stub.loginCount)
	assert.Same(t, session, client.Session())
}

func TestClient_Login_Rejected(t *testing.T) {
	stub := newDestinationStub()
	stub.rejectLogin = true
	client, _ := newTestClient(t, stub)

	_, err := client.Login(context.Background())
	require.Error(t, err)

	var authErr *meteo.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Nil(t, client.Session())
}

func TestClient_Login_MissingCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/Account/login", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK) // 2xx but no session cookie issued
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := meteo.NewClient(meteo.ClientConfig{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Login(context.Background())
	var authErr *meteo.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Message, sessionCookie)
}

func TestClient_ListLatest(t *testing.T) {
	stub := newDestinationStub()
	stub.rows = []map[string]any{
		{"id": 42, "detectedAtUtc": "2026-01-06T21:00:00.000Z", "pm_25": 12.5},
		{"id": 41, "detectedAtUtc": "2026-01-06T20:00:00.000Z", "pm_25": 8.0},
	}
	client, _ := newTestClient(t, stub)

	_, err := client.Login(context.Background())
	require.NoError(t, err)

	rows, err := client.ListLatest(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2026-01-06T21:00:00.000Z", rows[0].DetectedAtUTC)
}

func TestClient_ListLatest_Unauthenticated(t *testing.T) {
	stub := newDestinationStub()
	client, _ := newTestClient(t, stub)

	// No login: the list request carries no session cookie.
	_, err := client.ListLatest(context.Background())
	var authErr *meteo.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
}

func TestClient_ListLatest_QueryError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/AirQuality/list", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := meteo.NewClient(meteo.ClientConfig{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.ListLatest(context.Background())
	var queryErr *meteo.QueryError
	require.ErrorAs(t, err, &queryErr)
	assert.Equal(t, http.StatusBadRequest, queryErr.StatusCode)
}

func TestClient_ListLatest_MissingRows(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/AirQuality/list", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"total": 0}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := meteo.NewClient(meteo.ClientConfig{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.ListLatest(context.Background())
	var queryErr *meteo.QueryError
	require.ErrorAs(t, err, &queryErr)
}

func TestClient_Create(t *testing.T) {
	stub := newDestinationStub()
	client, _ := newTestClient(t, stub)

	_, err := client.Login(context.Background())
	require.NoError(t, err)

	err = client.Create(context.Background(), map[string]any{"detectedAtUtc": "2026-01-06T21:00:00.000Z"})
	require.NoError(t, err)
	assert.Equal(t, 1, stub.createCount)
}

func TestClient_Create_AuthAndUploadErrors(t *testing.T) {
	stub := newDestinationStub()
	client, _ := newTestClient(t, stub)

	// Unauthenticated create is an auth failure, not an upload failure.
	err := client.Create(context.Background(), map[string]any{})
	var authErr *meteo.AuthError
	require.ErrorAs(t, err, &authErr)

	_, err = client.Login(context.Background())
	require.NoError(t, err)

	stub.createStatus = http.StatusUnprocessableEntity
	err = client.Create(context.Background(), map[string]any{})
	var uploadErr *meteo.UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, http.StatusUnprocessableEntity, uploadErr.StatusCode)
}

func TestClient_Login_ReplacesSessionCookie(t *testing.T) {
	stub := newDestinationStub()
	client, _ := newTestClient(t, stub)

	_, err := client.Login(context.Background())
	require.NoError(t, err)
	_, err = client.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stub.loginCount)

	// Still authenticated with the replacement cookie.
	_, err = client.ListLatest(context.Background())
	require.NoError(t, err)
}
