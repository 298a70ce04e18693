package core

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// JobKey identifies one listing across cycles. Two jobs with the same key
// are the same listing even when retrieved at different times.
type JobKey struct {
	Platform   string
	ExternalID string
}

func (k JobKey) String() string {
	return fmt.Sprintf("%s:%s", k.Platform, k.ExternalID)
}

type Job struct {
	Platform    string    `json:"platform,omitempty"`
	ExternalID  string    `json:"external_id,omitempty" mapstructure:"external_id"`
	Title       string    `json:"title,omitempty"`
	Company     string    `json:"company,omitempty"`
	Location    string    `json:"location,omitempty"`
	Remote      bool      `json:"remote,omitempty"`
	SalaryText  string    `json:"salary_text,omitempty" mapstructure:"salary_text"`
	Description string    `json:"description,omitempty"`
	PostedAt    string    `json:"posted_at,omitempty" mapstructure:"posted_at"`
	SourceURL   string    `json:"source_url,omitempty" mapstructure:"source_url"`
	RetrievedAt time.Time `json:"retrieved_at,omitempty"`
}

func (j *Job) Key() JobKey {
	return JobKey{Platform: j.Platform, ExternalID: j.ExternalID}
}

type Jobs struct {
	Items []*Job
}

func (j *Jobs) Len() int {
	return len(j.Items)
}

func (j *Jobs) FindByKey(key JobKey) *Job {
	for _, job := range j.Items {
		if job.Key() == key {
			return job
		}
	}
	return nil
}

// Dedup collapses listings sharing the same (platform, external id),
// keeping the most recently retrieved copy. The relative order of the
// surviving items is not defined.
func (j *Jobs) Dedup() {
	seen := make(map[JobKey]*Job, len(j.Items))
	for _, job := range j.Items {
		key := job.Key()
		if kept, ok := seen[key]; !ok || job.RetrievedAt.After(kept.RetrievedAt) {
			seen[key] = job
		}
	}

	items := make([]*Job, 0, len(seen))
	for _, job := range seen {
		items = append(items, job)
	}
	j.Items = items
}

// ExcludeKeys removes listings whose key is in targets and returns the
// removed keys.
func (j *Jobs) ExcludeKeys(targets map[JobKey]struct{}) []JobKey {
	var excluded []JobKey
	items := j.Items[:0]
	for _, job := range j.Items {
		if _, ok := targets[job.Key()]; ok {
			excluded = append(excluded, job.Key())
			continue
		}
		items = append(items, job)
	}
	j.Items = items
	return excluded
}

// ExcludeCompanies removes listings from the named companies and returns
// the removed keys.
func (j *Jobs) ExcludeCompanies(companies []string) []JobKey {
	if len(companies) == 0 {
		return nil
	}

	banned := make(map[string]struct{}, len(companies))
	for _, c := range companies {
		banned[c] = struct{}{}
	}

	var excluded []JobKey
	items := j.Items[:0]
	for _, job := range j.Items {
		if _, ok := banned[job.Company]; ok {
			excluded = append(excluded, job.Key())
			continue
		}
		items = append(items, job)
	}
	j.Items = items
	return excluded
}

func (j *Jobs) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "jobs_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(j); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// ReportByCompany groups the listings by company for operator review.
func (j *Jobs) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, job := range j.Items {
		report[job.Company] = append(report[job.Company], map[string]string{
			"platform": job.Platform,
			"title":    job.Title,
			"location": job.Location,
			"salary":   job.SalaryText,
			"url":      job.SourceURL,
		})
	}
	return report
}
