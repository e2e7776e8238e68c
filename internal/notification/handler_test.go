package notification

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civreg/internal/auth"
	"civreg/pkg/testutil"
)

const handlerSigningKey = "handler-test-key"

func newTestRouter(searcher UserSearcher, dispatch Dispatcher) chi.Router {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	handler := NewHandler(auth.NewVerifier(handlerSigningKey), NewService(searcher, dispatch, logger), logger)
	r := chi.NewRouter()
	handler.Register(r)
	return r
}

func TestHandleSendToAllUsers(t *testing.T) {
	searcher := &fakeSearcher{population: population(10)}
	dispatch := &fakeDispatcher{}
	router := newTestRouter(searcher, dispatch)

	token := testutil.SignToken(t, handlerSigningKey, "admin-1", []string{auth.ScopeSysAdmin})
	req := testutil.NewJSONRequest(t, http.MethodPost, "/email/all-users", map[string]string{
		"subject": "Scheduled maintenance",
		"body":    "The system will be unavailable tonight.",
		"locale":  "en",
	})
	req.Header.Set("Authorization", "Bearer "+token)

	rr := testutil.DoRequest(router, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var res map[string]bool
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.True(t, res["success"])
	assert.Len(t, dispatch.batches, 1)
}

func TestHandleSendToAllUsersRequiresSysAdmin(t *testing.T) {
	dispatch := &fakeDispatcher{}
	router := newTestRouter(&fakeSearcher{population: population(10)}, dispatch)

	token := testutil.SignToken(t, handlerSigningKey, "user-1", []string{auth.ScopeRegister})
	req := testutil.NewJSONRequest(t, http.MethodPost, "/email/all-users", map[string]string{
		"subject": "s",
		"body":    "b",
	})
	req.Header.Set("Authorization", "Bearer "+token)

	rr := testutil.DoRequest(router, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, dispatch.batches)
}

func TestHandleSendToAllUsersValidation(t *testing.T) {
	router := newTestRouter(&fakeSearcher{}, &fakeDispatcher{})

	token := testutil.SignToken(t, handlerSigningKey, "admin-1", []string{auth.ScopeSysAdmin})
	req := testutil.NewJSONRequest(t, http.MethodPost, "/email/all-users", map[string]string{
		"subject": "no body here",
	})
	req.Header.Set("Authorization", "Bearer "+token)

	rr := testutil.DoRequest(router, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleSendToAllUsersMissingToken(t *testing.T) {
	router := newTestRouter(&fakeSearcher{}, &fakeDispatcher{})

	req := testutil.NewJSONRequest(t, http.MethodPost, "/email/all-users", map[string]string{
		"subject": "s",
		"body":    "b",
	})

	rr := testutil.DoRequest(router, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
