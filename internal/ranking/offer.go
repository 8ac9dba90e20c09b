package ranking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/hiring-engine/internal/collab"
	"github.com/jonathan/hiring-engine/internal/keylock"
	"github.com/jonathan/hiring-engine/internal/offerletter"
	"github.com/jonathan/hiring-engine/internal/store"
	"github.com/jonathan/hiring-engine/internal/types"
)

// OfferResult is the outcome of SendOffer. Notified is false when the offer
// was recorded but the offer email could not be delivered.
type OfferResult struct {
	Offer    *types.FinalCandidate `json:"offer"`
	Notified bool                  `json:"notified"`
	Warnings []*types.Warning      `json:"warnings,omitempty"`
}

// SendOffer moves the job's selected final candidate to offered with the
// given compensation, then emails the offer letter best-effort.
func (e *Engine) SendOffer(ctx context.Context, jobID uuid.UUID, compensation string) (*OfferResult, error) {
	compensation = strings.TrimSpace(compensation)
	if compensation == "" {
		return nil, &types.ValidationError{Field: "compensation", Message: "is required"}
	}

	fc, err := e.offer(ctx, jobID, compensation)
	if err != nil {
		return nil, err
	}
	res := &OfferResult{Offer: fc}
	e.logger.Info("offer recorded", "job_id", jobID, "candidate_id", fc.CandidateID, "hr", fc.HREmail)

	msg := collab.Message{
		Template:  collab.TemplateOfferLetter,
		Recipient: collab.Attendee{Name: fc.CandidateName, Email: fc.Email},
		Payload: map[string]string{
			"candidate_name": fc.CandidateName,
			"role_name":      fc.RoleName,
			"compensation":   fc.Compensation,
			"hr_name":        fc.HRName,
			"hr_email":       fc.HREmail,
			"total_score":    strconv.Itoa(fc.TotalScore),
		},
	}
	if e.company != "" {
		msg.Payload["company_name"] = e.company
	}
	if att, w := e.letter(ctx, fc); w != nil {
		res.Warnings = append(res.Warnings, w)
	} else if att != nil {
		msg.Attachments = append(msg.Attachments, *att)
	}

	ok, warnings := collab.Broadcast(ctx, e.logger, e.timeout, e.notifier, []collab.Message{msg})
	res.Notified = ok
	res.Warnings = append(res.Warnings, warnings...)
	return res, nil
}

func (e *Engine) offer(ctx context.Context, jobID uuid.UUID, compensation string) (*types.FinalCandidate, error) {
	unlock := e.locks.Lock(keylock.FinalCandidateKey(jobID.String()))
	defer unlock()

	fc, err := e.repo.FinalCandidate(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if fc.Status != types.FinalSelected {
		return nil, &types.InvalidStateError{Kind: types.KindFinalCandidate, ID: fc.ID.String(), State: string(fc.Status), Operation: "offer"}
	}

	hr, err := e.signatory(ctx, fc.ProcessID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	fc.Compensation = compensation
	fc.Status = types.FinalOffered
	fc.OfferedAt = &now
	fc.HRName = hr.Name
	fc.HREmail = hr.Email

	w, err := store.FinalCandidateWrite(fc)
	if err != nil {
		return nil, err
	}
	if err := e.repo.Commit(ctx, w); err != nil {
		var vc *types.VersionConflictError
		if errors.As(err, &vc) {
			// another instance got there first
			if current, lerr := e.repo.FinalCandidate(ctx, jobID); lerr == nil && current.Status == types.FinalOffered {
				return nil, &types.InvalidStateError{Kind: types.KindFinalCandidate, ID: current.ID.String(), State: string(current.Status), Operation: "offer"}
			}
		}
		return nil, err
	}
	fc.Version++
	return fc, nil
}

// signatory picks who signs the offer: an HR interviewer of the final round,
// else its first interviewer, else the configured HR contact.
func (e *Engine) signatory(ctx context.Context, processID uuid.UUID) (Contact, error) {
	view, err := e.repo.ProcessView(ctx, processID)
	if err != nil {
		var nf *types.NotFoundError
		if errors.As(err, &nf) {
			return e.hr, nil
		}
		return Contact{}, fmt.Errorf("failed to load process %s: %w", processID, err)
	}
	if len(view.Rounds) == 0 {
		return e.hr, nil
	}
	last := view.Rounds[len(view.Rounds)-1]
	for _, iv := range last.Interviewers {
		if strings.EqualFold(iv.Department, types.DepartmentHR) && iv.Email != "" {
			return Contact{Name: iv.Name, Email: iv.Email}, nil
		}
	}
	for _, iv := range last.Interviewers {
		if iv.Email != "" {
			return Contact{Name: iv.Name, Email: iv.Email}, nil
		}
	}
	return e.hr, nil
}

// letter renders the offer letter PDF when a generator is configured.
func (e *Engine) letter(ctx context.Context, fc *types.FinalCandidate) (*collab.Attachment, *types.Warning) {
	if e.letters == nil || e.letters.Printer == nil {
		return nil, nil
	}
	var doc *offerletter.Document
	w := collab.Advise(ctx, e.logger, e.letterTimeout, collab.NameOfferLetter, "generate", func(ctx context.Context) error {
		var err error
		doc, err = e.letters.Generate(ctx, offerletter.Letter{
			CandidateName: fc.CandidateName,
			RoleName:      fc.RoleName,
			Compensation:  fc.Compensation,
			CompanyName:   e.company,
			HRName:        fc.HRName,
			HREmail:       fc.HREmail,
			Date:          e.now().Format(offerletter.DateLayout),
		})
		return err
	})
	if w != nil {
		return nil, w
	}
	return &collab.Attachment{
		Filename:    offerletter.Filename(fc.CandidateName),
		ContentType: "application/pdf",
		Data:        doc.PDF,
	}, nil
}
