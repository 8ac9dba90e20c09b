package types

import (
	"strconv"

	"github.com/google/uuid"
)

// Record kinds
const (
	KindJob                 = "job"
	KindCandidate           = "candidate"
	KindProcess             = "process"
	KindRound               = "round"
	KindFinalCandidate      = "final_candidate"
	KindInterviewerSchedule = "interviewer_schedule"
)

var (
	processNamespace  = uuid.NewSHA1(uuid.NameSpaceURL, []byte("hiring-engine/process"))
	finalNamespace    = uuid.NewSHA1(uuid.NameSpaceURL, []byte("hiring-engine/final_candidate"))
	scheduleNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("hiring-engine/interviewer_schedule"))
)

// ProcessID is the identifier of the one process for (job, candidate).
func ProcessID(jobID, candidateID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(processNamespace, []byte(jobID.String()+"/"+candidateID.String()))
}

// FinalCandidateID is the identifier of the one final-candidate record of a job.
func FinalCandidateID(jobID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(finalNamespace, []byte(jobID.String()))
}

// ScheduleID is the identifier of an interviewer's booking ledger.
func ScheduleID(interviewerKey string) uuid.UUID {
	return uuid.NewSHA1(scheduleNamespace, []byte(interviewerKey))
}

// RoundID is the identifier of the index-th round (1-based) of a process.
func RoundID(processID uuid.UUID, index int) uuid.UUID {
	return uuid.NewSHA1(processID, []byte(strconv.Itoa(index)))
}
