// Package roster loads the interviewer roster and derives default round
// templates from it.
package roster

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/hiring-engine/internal/types"
)

// Round types
const (
	RoundTechnical = "Technical"
	RoundManager   = "Manager"
	RoundHR        = "HR"
)

// departmentFor maps a round type to the department that staffs it.
var departmentFor = map[string]string{
	RoundTechnical: types.DepartmentEngineering,
	RoundManager:   types.DepartmentManagement,
	RoundHR:        types.DepartmentHR,
}

// Interviewer is one roster entry.
type Interviewer struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Email      string   `yaml:"email"`
	Department string   `yaml:"department"`
	Expertise  []string `yaml:"expertise,omitempty"`
}

// Ref converts the entry to the reference stored on rounds.
func (i Interviewer) Ref() types.InterviewerRef {
	return types.InterviewerRef{ID: i.ID, Name: i.Name, Email: i.Email, Department: i.Department}
}

// Roster is the set of available interviewers.
type Roster struct {
	Interviewers []Interviewer `yaml:"interviewers"`
}

// DefaultRoundTypes returns the standard round sequence for n rounds:
// 1 Technical; 2 Manager, HR; 3 Technical, Manager, HR; beyond that extra
// Technical rounds are prepended.
func DefaultRoundTypes(n int) []string {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []string{RoundTechnical}
	case n == 2:
		return []string{RoundManager, RoundHR}
	}
	out := make([]string, 0, n)
	for i := 0; i < n-2; i++ {
		out = append(out, RoundTechnical)
	}
	return append(out, RoundManager, RoundHR)
}

// Parse decodes a roster document.
func Parse(data []byte) (*Roster, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("roster: document is empty")
	}
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("roster: decode: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Load reads a roster file.
func Load(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("roster: read %s: %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("roster: %s: %w", path, err)
	}
	return r, nil
}

// Validate checks every entry has an id and email, and ids are unique.
func (r *Roster) Validate() error {
	seen := make(map[string]bool, len(r.Interviewers))
	for i, iv := range r.Interviewers {
		if strings.TrimSpace(iv.ID) == "" {
			return &types.ValidationError{Field: fmt.Sprintf("interviewers[%d].id", i), Message: "is required"}
		}
		if !strings.Contains(iv.Email, "@") {
			return &types.ValidationError{Field: fmt.Sprintf("interviewers[%d].email", i), Message: "must be an email address"}
		}
		if seen[iv.ID] {
			return &types.ValidationError{Field: fmt.Sprintf("interviewers[%d].id", i), Message: "duplicate id " + iv.ID}
		}
		seen[iv.ID] = true
	}
	return nil
}

// Lookup resolves interviewer ids.
func (r *Roster) Lookup(ids ...string) ([]types.InterviewerRef, error) {
	byID := make(map[string]Interviewer, len(r.Interviewers))
	for _, iv := range r.Interviewers {
		byID[iv.ID] = iv
	}
	out := make([]types.InterviewerRef, 0, len(ids))
	for _, id := range ids {
		iv, ok := byID[id]
		if !ok {
			return nil, &types.NotFoundError{Kind: "interviewer", ID: id}
		}
		out = append(out, iv.Ref())
	}
	return out, nil
}

// InDepartment lists the interviewers of a department in roster order.
func (r *Roster) InDepartment(department string) []Interviewer {
	var out []Interviewer
	for _, iv := range r.Interviewers {
		if strings.EqualFold(iv.Department, department) {
			out = append(out, iv)
		}
	}
	return out
}

// Templates builds n round templates from the default round sequence.
// Rounds of the same type rotate through the department's interviewers.
func (r *Roster) Templates(n int) ([]types.RoundTemplate, error) {
	roundTypes := DefaultRoundTypes(n)
	used := make(map[string]int)
	out := make([]types.RoundTemplate, 0, len(roundTypes))
	for _, rt := range roundTypes {
		dept := departmentFor[rt]
		pool := r.InDepartment(dept)
		if len(pool) == 0 {
			return nil, &types.ValidationError{Field: "round_templates", Message: fmt.Sprintf("no interviewer in department %q for %s round", dept, rt)}
		}
		iv := pool[used[dept]%len(pool)]
		used[dept]++
		out = append(out, types.RoundTemplate{RoundType: rt, Interviewers: []types.InterviewerRef{iv.Ref()}})
	}
	return out, nil
}
