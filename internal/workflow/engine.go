package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/CCDocs-repos/Batch-Onboarding-Automation/internal/dto"
)

// recordPause is the fixed inter-row throttle. The upstream APIs rate-limit
// at undocumented thresholds; 1s per row has been enough in practice.
const recordPause = time.Second

type HRClient interface {
	FindEmployeeByEmail(ctx context.Context, email string) (string, error)
	FindCandidateByEmail(ctx context.Context, email string) (string, error)
	CreateEmployee(ctx context.Context, rec dto.HireRecord) (string, error)
	HireCandidate(ctx context.Context, candidateID string, rec dto.HireRecord) (string, error)
	UpdateEmployee(ctx context.Context, employeeID string, rec dto.HireRecord) error
	AddCompensation(ctx context.Context, employeeID string, rec dto.HireRecord) error
	GrantPortalAccess(ctx context.Context, employeeID, email string) error
	RequestSignature(ctx context.Context, rec dto.HireRecord) error
	SendNewHirePacket(ctx context.Context, employeeID string) error
}

type TrackerClient interface {
	CreateAccount(ctx context.Context, rec dto.HireRecord) (warning string, err error)
}

type TaskSource interface {
	Pending(ctx context.Context) ([]dto.HireRecord, error)
	WriteBack(ctx context.Context, rowIndex int, status, notes string) error
}

type Notifier interface {
	PostSummary(ctx context.Context, text string)
}

// EventSink receives per-row and per-run audit events. Optional.
type EventSink interface {
	ProduceRowResult(ctx context.Context, rec dto.HireRecord, res dto.ProvisioningResult) error
	ProduceRunSummary(ctx context.Context, succeeded, failed int) error
}

type Deps struct {
	HR       HRClient
	Tracker  TrackerClient
	Source   TaskSource
	Notifier Notifier
	Events   EventSink // nil disables audit events
	Log      zerolog.Logger
}

// Engine drives each pending hire through the provisioning sequence:
// resolve -> enrich -> compensate -> portal access -> signature -> packet ->
// time tracker, strictly one row at a time.
type Engine struct {
	hr       HRClient
	tracker  TrackerClient
	source   TaskSource
	notifier Notifier
	events   EventSink
	sleep    func(time.Duration)
	log      zerolog.Logger
}

func NewEngine(d Deps) *Engine {
	return &Engine{
		hr:       d.HR,
		tracker:  d.Tracker,
		source:   d.Source,
		notifier: d.Notifier,
		events:   d.Events,
		sleep:    time.Sleep,
		log:      d.Log.With().Str("component", "OnboardingEngine").Logger(),
	}
}

// Run processes every pending row, writes each outcome back and posts the
// run summary. Only a batch-level failure (the task source itself) aborts
// the run; a broken row is written as failed and the loop moves on.
func (e *Engine) Run(ctx context.Context) error {
	records, err := e.source.Pending(ctx)
	if err != nil {
		e.notifier.PostSummary(ctx, fmt.Sprintf("Onboarding automation failed: %v", err))
		return fmt.Errorf("source.Pending: %w", err)
	}
	if len(records) == 0 {
		e.log.Info().Msg("no pending hires")
		e.notifier.PostSummary(ctx, "No new hires to process.")
		return nil
	}

	var succeeded, failed int
	for _, rec := range records {
		e.log.Info().Int("row", rec.Row).Str("email", rec.Email).Str("name", rec.FullName()).Msg("processing hire")

		res := e.processRecord(ctx, &rec)
		if err := e.source.WriteBack(ctx, res.Row, res.Status, res.NotesText()); err != nil {
			// The sheet write is the durable record; losing it is worth an
			// error log, but the remaining rows still deserve processing.
			e.log.Error().Err(err).Int("row", res.Row).Msg("write-back failed")
		}

		if res.Status == dto.StatusSuccess {
			succeeded++
			e.log.Info().Int("row", res.Row).Msg("hire processed")
		} else {
			failed++
			e.log.Warn().Int("row", res.Row).Str("notes", res.NotesText()).Msg("hire failed")
		}

		if e.events != nil {
			if err := e.events.ProduceRowResult(ctx, rec, res); err != nil {
				e.log.Error().Err(err).Int("row", res.Row).Msg("audit event publish failed")
			}
		}

		e.sleep(recordPause)
	}

	summary := fmt.Sprintf("Onboarding run complete: %d succeeded, %d failed.", succeeded, failed)
	e.log.Info().Int("succeeded", succeeded).Int("failed", failed).Msg("run complete")
	e.notifier.PostSummary(ctx, summary)

	if e.events != nil {
		if err := e.events.ProduceRunSummary(ctx, succeeded, failed); err != nil {
			e.log.Error().Err(err).Msg("run summary event publish failed")
		}
	}
	return nil
}

// processRecord runs the state machine for one hire. Identity, enrichment,
// compensation and portal access are hard gates for new records; signature,
// packet and tracker account are best-effort. For a pre-existing employee the
// opportunistic re-provisioning steps only warn, they never fail the row.
func (e *Engine) processRecord(ctx context.Context, rec *dto.HireRecord) (res dto.ProvisioningResult) {
	res = dto.ProvisioningResult{Row: rec.Row, Status: dto.StatusPending}
	defer func() {
		if rvr := recover(); rvr != nil {
			e.log.Error().Interface("panic", rvr).Int("row", rec.Row).Msg("recovered while processing row")
			res.Fail(fmt.Sprintf("Unexpected error: %v", rvr))
		}
	}()

	existing, ok := e.resolve(ctx, rec, &res)
	if !ok {
		return res
	}

	if err := e.hr.UpdateEmployee(ctx, rec.PlatformID, *rec); err != nil {
		res.Fail("Update Error: " + err.Error())
		return res
	}

	if err := e.hr.AddCompensation(ctx, rec.PlatformID, *rec); err != nil {
		res.Fail("Comp Error: " + err.Error())
		return res
	}

	if err := e.hr.GrantPortalAccess(ctx, rec.PlatformID, rec.Email); err != nil && !errors.Is(err, dto.ErrEndpointUnavailable) {
		if !existing {
			res.Fail("Provision Error: " + err.Error())
			return res
		}
		e.warn(rec, "portal access", err)
	}

	softFail := func(step, note string, err error) {
		if existing {
			e.warn(rec, step, err)
			return
		}
		res.AddNote(note + ": " + err.Error())
	}

	if err := e.hr.RequestSignature(ctx, *rec); err != nil {
		softFail("signature request", "BambooHR error", err)
	}
	if err := e.hr.SendNewHirePacket(ctx, rec.PlatformID); err != nil {
		softFail("new hire packet", "New hire packet error", err)
	}
	if warning, err := e.tracker.CreateAccount(ctx, *rec); err != nil {
		softFail("time tracker account", "WebWork error", err)
	} else if warning != "" {
		e.log.Warn().Int("row", rec.Row).Str("email", rec.Email).Msg("WebWork account " + warning)
	}

	res.Finalize()
	return res
}

// resolve pins down the platform ID: an existing employee by email, a hired
// tracked candidate, or a freshly created record. A create/hire failure is
// immediately fatal for the row.
func (e *Engine) resolve(ctx context.Context, rec *dto.HireRecord, res *dto.ProvisioningResult) (existing, ok bool) {
	id, err := e.hr.FindEmployeeByEmail(ctx, rec.Email)
	switch {
	case err == nil:
		e.log.Info().Int("row", rec.Row).Str("employee_id", id).Msg("employee already exists, re-provisioning opportunistically")
		rec.PlatformID = id
		return true, true
	case !errors.Is(err, dto.ErrNotFound):
		res.Fail("Lookup Error: " + err.Error())
		return false, false
	}

	candidateID, err := e.hr.FindCandidateByEmail(ctx, rec.Email)
	switch {
	case err == nil:
		id, err = e.hr.HireCandidate(ctx, candidateID, *rec)
		if err != nil {
			res.Fail("Hire Error: " + err.Error())
			return false, false
		}
	case errors.Is(err, dto.ErrNotFound):
		id, err = e.hr.CreateEmployee(ctx, *rec)
		if err != nil {
			res.Fail("Create Error: " + err.Error())
			return false, false
		}
	default:
		res.Fail("Candidate Lookup Error: " + err.Error())
		return false, false
	}

	rec.PlatformID = id
	return false, true
}

func (e *Engine) warn(rec *dto.HireRecord, step string, err error) {
	e.log.Warn().Err(err).Int("row", rec.Row).Str("email", rec.Email).Str("step", step).
		Msg("step failed for existing employee, continuing")
}
