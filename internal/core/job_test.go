package core

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func job(platform, id string, retrieved time.Time) *Job {
	return &Job{
		Platform:    platform,
		ExternalID:  id,
		Title:       "Backend Developer",
		Company:     "Acme",
		RetrievedAt: retrieved,
	}
}

func keys(jobs *Jobs) map[JobKey]struct{} {
	set := make(map[JobKey]struct{}, jobs.Len())
	for _, j := range jobs.Items {
		set[j.Key()] = struct{}{}
	}
	return set
}

func TestDedupKeepsLatestCopy(t *testing.T) {
	t.Parallel()

	old := time.Now().Add(-time.Hour)
	fresh := time.Now()

	stale := job("infojobs", "1", old)
	latest := job("infojobs", "1", fresh)
	latest.Title = "Senior Backend Developer"

	jobs := &Jobs{Items: []*Job{stale, latest, job("catho", "1", old)}}
	jobs.Dedup()

	require.Equal(t, 2, jobs.Len())
	kept := jobs.FindByKey(JobKey{Platform: "infojobs", ExternalID: "1"})
	require.NotNil(t, kept)
	assert.Equal(t, "Senior Backend Developer", kept.Title)
}

func TestDedupIsIdempotent(t *testing.T) {
	t.Parallel()

	now := time.Now()
	list := []*Job{
		job("infojobs", "1", now),
		job("infojobs", "2", now),
		job("linkedin", "1", now),
	}

	once := &Jobs{Items: append([]*Job{}, list...)}
	once.Dedup()

	// dedup(L ++ L) == dedup(L)
	doubled := &Jobs{Items: append(append([]*Job{}, list...), list...)}
	doubled.Dedup()

	assert.Equal(t, once.Len(), doubled.Len())
	assert.Equal(t, keys(once), keys(doubled))
}

func TestExcludeKeys(t *testing.T) {
	t.Parallel()

	now := time.Now()
	jobs := &Jobs{Items: []*Job{
		job("infojobs", "1", now),
		job("infojobs", "2", now),
	}}

	excluded := jobs.ExcludeKeys(map[JobKey]struct{}{
		{Platform: "infojobs", ExternalID: "1"}: {},
	})

	require.Len(t, excluded, 1)
	assert.Equal(t, "infojobs:1", excluded[0].String())
	require.Equal(t, 1, jobs.Len())
	assert.Equal(t, "2", jobs.Items[0].ExternalID)
}

func TestReportByCompany(t *testing.T) {
	t.Parallel()

	now := time.Now()
	globex := job("catho", "7", now)
	globex.Company = "Globex"
	globex.Title = "SRE"

	jobs := &Jobs{Items: []*Job{job("infojobs", "1", now), job("catho", "2", now), globex}}

	report := jobs.ReportByCompany()

	require.Len(t, report, 2)
	assert.Len(t, report["Acme"], 2)
	require.Len(t, report["Globex"], 1)
	assert.Equal(t, "SRE", report["Globex"][0]["title"])
	assert.Equal(t, "catho", report["Globex"][0]["platform"])
}

func TestDumpToTmpFile(t *testing.T) {
	t.Parallel()

	jobs := &Jobs{Items: []*Job{job("infojobs", "1", time.Now())}}

	filename, err := jobs.DumpToTmpFile()
	require.NoError(t, err)
	defer os.Remove(filename)

	data, err := os.ReadFile(filename)
	require.NoError(t, err)

	var restored Jobs
	require.NoError(t, json.Unmarshal(data, &restored))
	require.Equal(t, 1, restored.Len())
	assert.Equal(t, "infojobs:1", restored.Items[0].Key().String())
}

func TestExcludeCompanies(t *testing.T) {
	t.Parallel()

	now := time.Now()
	keep := job("catho", "7", now)
	keep.Company = "Globex"

	jobs := &Jobs{Items: []*Job{job("infojobs", "1", now), keep}}

	excluded := jobs.ExcludeCompanies([]string{"Acme"})

	require.Len(t, excluded, 1)
	require.Equal(t, 1, jobs.Len())
	assert.Equal(t, "Globex", jobs.Items[0].Company)
}
