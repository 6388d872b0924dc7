package deals

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"dealbrief-backend/internal/briefs"
	"dealbrief-backend/internal/generator"
	"dealbrief-backend/internal/shared/metrics"
	"dealbrief-backend/internal/shared/storage/object"
	"dealbrief-backend/internal/shared/telemetry"
)

const maxErrorLength = 500

// Service turns submitted deal text into persisted briefs.
type Service struct {
	Store     Store
	Generator generator.Generator
	// Archive, if set, receives every generator attempt.
	Archive object.ObjectStore
	Now     func() time.Time
	NewID   func() string
}

// NewService wires a Service with the default clock and id source.
func NewService(store Store, gen generator.Generator, archive object.ObjectStore) *Service {
	return &Service{Store: store, Generator: gen, Archive: archive}
}

// CreateBrief deduplicates rawText, records it as pending, runs generation
// with one repair attempt and persists the terminal state. Generation
// problems never surface as errors; they are recorded on the returned deal.
func (s *Service) CreateBrief(ctx context.Context, rawText string) (Deal, error) {
	if err := validateRawText(rawText); err != nil {
		return Deal{}, err
	}

	fingerprint := Fingerprint(rawText)
	if _, err := s.Store.FindByFingerprint(ctx, fingerprint); err == nil {
		s.logDuplicate(ctx, fingerprint)
		return Deal{}, ErrDuplicateInput
	} else if !errors.Is(err, ErrNotFound) {
		return Deal{}, eris.Wrap(err, "deals: dedup lookup")
	}

	now := s.now()
	deal := Deal{
		ID:          s.newID(),
		Fingerprint: fingerprint,
		RawText:     rawText,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.Insert(ctx, deal); err != nil {
		if errors.Is(err, ErrDuplicateFingerprint) {
			s.logDuplicate(ctx, fingerprint)
			return Deal{}, ErrDuplicateInput
		}
		return Deal{}, eris.Wrap(err, "deals: insert pending")
	}
	metrics.IncBriefCreated()

	startedAt := time.Now()
	result, genErr := s.runLoop(ctx, deal.ID, rawText)
	elapsed := durationMs(startedAt)
	metrics.ObserveBriefDurationMs(elapsed)

	deal.UpdatedAt = s.now()
	if genErr == nil {
		brief := result.Brief
		deal.Status = StatusProcessed
		deal.Extracted = &brief
	} else {
		msg := sanitizeError(genErr)
		deal.Status = StatusFailed
		deal.LastError = &msg
	}

	persistCtx := context.WithoutCancel(ctx)
	if err := s.Store.Update(persistCtx, deal); err != nil {
		s.failDeal(persistCtx, deal, err)
		return Deal{}, eris.Wrap(err, "deals: persist outcome")
	}

	if deal.Status == StatusProcessed {
		metrics.IncBriefProcessed()
	} else {
		metrics.IncBriefFailed()
	}
	fields := map[string]any{
		"request_id":        telemetry.RequestID(ctx),
		"deal_id":           deal.ID,
		"status":            string(deal.Status),
		"status_transition": "pending->" + string(deal.Status),
		"attempts":          result.Attempts,
		"duration_ms":       elapsed,
	}
	if deal.LastError != nil {
		fields["error"] = *deal.LastError
	}
	telemetry.Info("deal.status", fields)
	return deal, nil
}

// Get returns a deal by id.
func (s *Service) Get(ctx context.Context, id string) (Deal, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Deal{}, ErrNotFound
	}
	return s.Store.GetByID(ctx, id)
}

// List returns one page of deals, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) (Page, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return Page{}, eris.Wrapf(ErrInvalidInput, "unknown status %q", filter.Status)
	}
	results, total, err := s.Store.List(ctx, normalizeListFilter(filter))
	if err != nil {
		return Page{}, err
	}
	if results == nil {
		results = []Deal{}
	}
	return Page{Count: total, Results: results}, nil
}

func (s *Service) runLoop(ctx context.Context, dealID, rawText string) (result briefs.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &briefs.GenerationError{Err: eris.Errorf("panic: %v", r)}
		}
	}()
	loop := &briefs.Loop{
		Generator: s.Generator,
		OnAttempt: func(ctx context.Context, a briefs.Attempt) {
			if a.Repair {
				metrics.IncBriefRepair()
			}
			s.archiveAttempt(ctx, dealID, a)
		},
	}
	return loop.Run(ctx, rawText)
}

// failDeal is a best-effort attempt to leave no record pending after the
// terminal update itself failed.
func (s *Service) failDeal(ctx context.Context, deal Deal, cause error) {
	msg := sanitizeError(eris.Wrap(cause, "persist outcome"))
	deal.Status = StatusFailed
	deal.Extracted = nil
	deal.LastError = &msg
	deal.UpdatedAt = s.now()
	if err := s.Store.Update(ctx, deal); err != nil {
		telemetry.Error("deal.status", map[string]any{
			"request_id": telemetry.RequestID(ctx),
			"deal_id":    deal.ID,
			"status":     string(StatusPending),
			"error":      err,
			"cause":      cause,
		})
		return
	}
	metrics.IncBriefFailed()
	telemetry.Warn("deal.status", map[string]any{
		"request_id":        telemetry.RequestID(ctx),
		"deal_id":           deal.ID,
		"status":            string(StatusFailed),
		"status_transition": "pending->failed",
		"error":             msg,
	})
}

type archivedAttempt struct {
	DealID     string          `json:"deal_id"`
	Attempt    int             `json:"attempt"`
	Repair     bool            `json:"repair"`
	Payload    json.RawMessage `json:"payload"`
	Error      *string         `json:"error"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// AttemptKey is the archive key of attempt n for a deal.
func AttemptKey(dealID string, n int) string {
	return fmt.Sprintf("deals/%s/attempt-%d.json", dealID, n)
}

func (s *Service) archiveAttempt(ctx context.Context, dealID string, a briefs.Attempt) {
	if s.Archive == nil {
		return
	}
	rec := archivedAttempt{
		DealID:     dealID,
		Attempt:    a.Number,
		Repair:     a.Repair,
		RecordedAt: s.now(),
	}
	if len(a.Payload) > 0 {
		if json.Valid(a.Payload) {
			rec.Payload = a.Payload
		} else {
			quoted, _ := json.Marshal(string(a.Payload))
			rec.Payload = quoted
		}
	}
	if a.Err != nil {
		msg := sanitizeError(a.Err)
		rec.Error = &msg
	}
	body, err := json.Marshal(rec)
	if err != nil {
		telemetry.Warn("deal.archive", map[string]any{"deal_id": dealID, "error": err})
		return
	}
	key := AttemptKey(dealID, a.Number)
	if _, err := s.Archive.Put(context.WithoutCancel(ctx), key, "application/json", bytes.NewReader(body)); err != nil {
		telemetry.Warn("deal.archive", map[string]any{
			"request_id": telemetry.RequestID(ctx),
			"deal_id":    dealID,
			"key":        key,
			"error":      err,
		})
	}
}

func (s *Service) logDuplicate(ctx context.Context, fingerprint string) {
	metrics.IncBriefDuplicate()
	telemetry.Info("deal.duplicate", map[string]any{
		"request_id":  telemetry.RequestID(ctx),
		"fingerprint": fingerprint,
	})
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func validateRawText(rawText string) error {
	if strings.TrimSpace(rawText) == "" {
		return eris.Wrap(ErrInvalidInput, "raw_text is required")
	}
	if utf8.RuneCountInString(rawText) > MaxRawTextLength {
		return eris.Wrapf(ErrInvalidInput, "raw_text must be at most %d characters", MaxRawTextLength)
	}
	return nil
}

func durationMs(startedAt time.Time) float64 {
	return float64(time.Since(startedAt).Microseconds()) / 1000.0
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(strings.ToValidUTF8(msg, "\uFFFD"))
	if len(msg) > maxErrorLength {
		msg = msg[:maxErrorLength]
		// Drop a rune split by the cut.
		for len(msg) > 0 {
			r, size := utf8.DecodeLastRuneInString(msg)
			if r != utf8.RuneError || size != 1 {
				break
			}
			msg = msg[:len(msg)-1]
		}
	}
	return msg
}
