// Package types provides the data model shared by the hiring engines: jobs,
// candidates, interview processes, rounds and final-candidate records.
package types

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus constants
const (
	JobStatusActive = "active"
	JobStatusClosed = "closed"
)

// JobPosting is an open role that candidates are interviewed against.
type JobPosting struct {
	ID                 uuid.UUID `json:"id"`
	RoleName           string    `json:"role_name"`
	Description        string    `json:"description"`
	RequiredExperience string    `json:"required_experience"`
	Location           string    `json:"location"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	Version            int64     `json:"version"`
}

// IsActive reports whether the job still accepts shortlisting.
func (j *JobPosting) IsActive() bool {
	return j.Status == JobStatusActive
}

// PreviousCompany is one entry of a candidate's employment history.
type PreviousCompany struct {
	Name             string `json:"name"`
	Responsibilities string `json:"responsibilities,omitempty"`
	Years            string `json:"years,omitempty"`
}

// Profile holds the extracted resume data of a candidate.
type Profile struct {
	Skills            []string          `json:"skills,omitempty"`
	ExperienceYears   float64           `json:"experience_years,omitempty"`
	PreviousCompanies []PreviousCompany `json:"previous_companies,omitempty"`
	ResumeURL         string            `json:"resume_url,omitempty"`
}

// Candidate is an applicant for a job. The engines never mutate it.
type Candidate struct {
	ID        uuid.UUID `json:"id"`
	JobID     uuid.UUID `json:"job_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Profile   Profile   `json:"profile"`
	FitScore  float64   `json:"fit_score"`
	CreatedAt time.Time `json:"created_at"`
	Version   int64     `json:"version"`
}
