package rest

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/autovagas/autovagas/internal/core"
	"github.com/autovagas/autovagas/internal/platform"
)

func newTestAdapter(t *testing.T, handler http.Handler) *Adapter {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New("infojobs", server.URL, "autovagas-test", zap.NewNop())
}

func TestLoginKeepsTokenOnSuccess(t *testing.T) {
	t.Parallel()

	var gotAuth, gotAgent string
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))

	err := adapter.Login(context.Background(), &platform.Credential{AccessToken: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "autovagas-test", gotAgent)
	assert.Equal(t, "secret", adapter.token)
}

func TestLoginRejectedTokenIsAuthError(t *testing.T) {
	t.Parallel()

	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	err := adapter.Login(context.Background(), &platform.Credential{AccessToken: "expired"})
	require.Error(t, err)
	assert.True(t, platform.IsAuthError(err))
	assert.Empty(t, adapter.token, "rejected token must not be kept")
}

func TestLoginWithoutTokenFailsBeforeAnyRequest(t *testing.T) {
	t.Parallel()

	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))

	err := adapter.Login(context.Background(), &platform.Credential{AccessToken: "  "})
	require.Error(t, err)
	assert.True(t, platform.IsAuthError(err))
}

func TestSearchFollowsPagination(t *testing.T) {
	t.Parallel()

	pages := []ItemResponse{
		{
			Items: []Item{
				map[string]any{"external_id": "1", "title": "Backend Developer", "company": "Acme"},
				map[string]any{"external_id": "2", "title": "Platform Engineer", "company": "Umbrella"},
			},
			Found: 3, Pages: 2, Page: 0, PerPage: 2,
		},
		{
			Items: []Item{
				map[string]any{"external_id": "3", "title": "SRE", "company": "Initech", "salary_text": "R$ 8.000 - R$ 12.000"},
			},
			Found: 3, Pages: 2, Page: 1, PerPage: 2,
		},
	}

	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, searchPath, r.URL.Path)
		assert.Equal(t, "go", r.URL.Query().Get("keywords"))
		assert.Equal(t, defaultPerPage, r.URL.Query().Get("per_page"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		require.Less(t, page, len(pages))

		w.Header().Set("Content-Type", contentType)
		require.NoError(t, json.NewEncoder(w).Encode(pages[page]))
	}))

	jobs, err := adapter.Search(context.Background(), &core.JobSearchParams{Keywords: []string{"go"}})
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	assert.Equal(t, "infojobs", jobs[0].Platform)
	assert.False(t, jobs[0].RetrievedAt.IsZero())
	assert.Equal(t, "Backend Developer", jobs[0].Title)
	assert.Equal(t, "R$ 8.000 - R$ 12.000", jobs[2].SalaryText)
}

func TestSearchDecodesGzipResponses(t *testing.T) {
	t.Parallel()

	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		defer gz.Close()
		require.NoError(t, json.NewEncoder(gz).Encode(ItemResponse{
			Items: []Item{map[string]any{"external_id": "9", "title": "Data Engineer"}},
			Found: 1, Pages: 1,
		}))
	}))

	jobs, err := adapter.Search(context.Background(), &core.JobSearchParams{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "9", jobs[0].ExternalID)
}

func TestSearchRejectsCorruptGzipBody(t *testing.T) {
	t.Parallel()

	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		fmt.Fprint(w, "this is not gzip")
	}))

	_, err := adapter.Search(context.Background(), &core.JobSearchParams{})
	assert.Error(t, err)
}

func TestApplySubmitsFormAndReturnsApplicationID(t *testing.T) {
	t.Parallel()

	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, applicationsPath, r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseMultipartForm(1 << 20))

		assert.Equal(t, "42", r.FormValue("job_id"))
		assert.Equal(t, "dev@example.com", r.FormValue("applicant"))
		assert.Equal(t, "hello there", r.FormValue("message"))

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": "app-7"}`)
	}))
	adapter.token = "secret"

	job := &core.Job{Platform: "infojobs", ExternalID: "42"}
	profile := &core.CandidateProfile{Email: "dev@example.com"}

	result, err := adapter.Apply(context.Background(), job, profile, "hello there")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "app-7", result.ApplicationID)
	assert.Equal(t, "infojobs", result.Platform)
}

func TestApplyEmptyCreateBodyIsFine(t *testing.T) {
	t.Parallel()

	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	result, err := adapter.Apply(context.Background(), &core.Job{ExternalID: "1"}, &core.CandidateProfile{}, "hi")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.ApplicationID)
}

func TestApplyExpiredSessionIsAuthError(t *testing.T) {
	t.Parallel()

	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := adapter.Apply(context.Background(), &core.Job{ExternalID: "1"}, &core.CandidateProfile{}, "hi")
	require.Error(t, err)
	assert.True(t, platform.IsAuthError(err))
}

func TestApplicationStatus(t *testing.T) {
	t.Parallel()

	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, applicationsPath+"/app-7", r.URL.Path)
		fmt.Fprint(w, `{"status": "viewed"}`)
	}))

	status, err := adapter.ApplicationStatus(context.Background(), "app-7")
	require.NoError(t, err)
	assert.Equal(t, "viewed", status)
}

func TestApplicationStatusServerError(t *testing.T) {
	t.Parallel()

	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := adapter.ApplicationStatus(context.Background(), "app-7")
	require.Error(t, err)
	assert.False(t, platform.IsAuthError(err))
}
