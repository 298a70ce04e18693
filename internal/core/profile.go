package core

// JobType mirrors the contract kinds used by the supported boards.
type JobType string

const (
	JobTypeCLT      JobType = "clt"
	JobTypePJ       JobType = "pj"
	JobTypeContract JobType = "contract"
	JobTypeIntern   JobType = "intern"
)

// CandidateProfile describes who is applying and what they are after.
// The orchestrator treats it as read-only during a cycle; it is owned by
// the caller and passed by reference into Activate.
type CandidateProfile struct {
	Name          string   `mapstructure:"name"`
	Email         string   `mapstructure:"email"`
	DesiredTitles []string `mapstructure:"desired_titles"`
	Skills        []string `mapstructure:"skills"`
	// Locations is ordered, first entry is the primary one.
	Locations     []string  `mapstructure:"locations"`
	AcceptsRemote bool      `mapstructure:"accepts_remote"`
	AcceptsHybrid bool      `mapstructure:"accepts_hybrid"`
	AcceptsOnsite bool      `mapstructure:"accepts_onsite"`
	SalaryMin     int       `mapstructure:"salary_min"`
	SalaryMax     int       `mapstructure:"salary_max"`
	JobTypes      []JobType `mapstructure:"job_types"`
	ResumeText    string    `mapstructure:"resume_text"`
}

// JobSearchParams is the search request fanned out to every adapter.
type JobSearchParams struct {
	Keywords  []string `param:"keywords" mapstructure:"keywords"`
	Locations []string `param:"locations" mapstructure:"locations"`
	Remote    bool     `param:"remote" mapstructure:"remote"`
	JobTypes  []string `param:"job_types" mapstructure:"job_types"`
	PerPage   string   `param:"per_page" mapstructure:"per_page"`
}
