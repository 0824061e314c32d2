package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/CCDocs-repos/Batch-Onboarding-Automation/internal/dto"
)

// fakeHR scripts failures per step and key. Keys are emails for the lookup,
// create, portal and signature steps, employee IDs for update, compensation
// and packet. Created employees get the ID "id-<email>", hired candidates
// "hired-<candidateID>".
type fakeHR struct {
	employees  map[string]string // existing email -> employee ID
	candidates map[string]string // email -> candidate ID
	errs       map[string]error  // "<step>:<key>" -> error
	calls      []string
}

func (h *fakeHR) step(name, key string) error {
	h.calls = append(h.calls, name+":"+key)
	return h.errs[name+":"+key]
}

func (h *fakeHR) FindEmployeeByEmail(_ context.Context, email string) (string, error) {
	if err := h.step("find-employee", email); err != nil {
		return "", err
	}
	if id, ok := h.employees[email]; ok {
		return id, nil
	}
	return "", dto.ErrNotFound
}

func (h *fakeHR) FindCandidateByEmail(_ context.Context, email string) (string, error) {
	if err := h.step("find-candidate", email); err != nil {
		return "", err
	}
	if id, ok := h.candidates[email]; ok {
		return id, nil
	}
	return "", dto.ErrNotFound
}

func (h *fakeHR) CreateEmployee(_ context.Context, rec dto.HireRecord) (string, error) {
	if err := h.step("create", rec.Email); err != nil {
		return "", err
	}
	return "id-" + rec.Email, nil
}

func (h *fakeHR) HireCandidate(_ context.Context, candidateID string, _ dto.HireRecord) (string, error) {
	if err := h.step("hire", candidateID); err != nil {
		return "", err
	}
	return "hired-" + candidateID, nil
}

func (h *fakeHR) UpdateEmployee(_ context.Context, employeeID string, _ dto.HireRecord) error {
	return h.step("update", employeeID)
}

func (h *fakeHR) AddCompensation(_ context.Context, employeeID string, _ dto.HireRecord) error {
	return h.step("comp", employeeID)
}

func (h *fakeHR) GrantPortalAccess(_ context.Context, _ string, email string) error {
	return h.step("portal", email)
}

func (h *fakeHR) RequestSignature(_ context.Context, rec dto.HireRecord) error {
	return h.step("signature", rec.Email)
}

func (h *fakeHR) SendNewHirePacket(_ context.Context, employeeID string) error {
	return h.step("packet", employeeID)
}

func (h *fakeHR) called(prefix string) bool {
	for _, c := range h.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

type fakeTracker struct {
	warning string
	err     error
	calls   int
}

func (t *fakeTracker) CreateAccount(context.Context, dto.HireRecord) (string, error) {
	t.calls++
	return t.warning, t.err
}

type writeBack struct {
	row    int
	status string
	notes  string
}

type fakeSource struct {
	records    []dto.HireRecord
	pendingErr error
	writeErr   error
	writes     []writeBack
}

func (s *fakeSource) Pending(context.Context) ([]dto.HireRecord, error) {
	return s.records, s.pendingErr
}

func (s *fakeSource) WriteBack(_ context.Context, rowIndex int, status, notes string) error {
	s.writes = append(s.writes, writeBack{row: rowIndex, status: status, notes: notes})
	return s.writeErr
}

type fakeNotifier struct {
	messages []string
}

func (n *fakeNotifier) PostSummary(_ context.Context, text string) {
	n.messages = append(n.messages, text)
}

type rowEvent struct {
	email  string
	status string
}

type fakeSink struct {
	rows      []rowEvent
	succeeded int
	failed    int
	summaries int
}

func (s *fakeSink) ProduceRowResult(_ context.Context, rec dto.HireRecord, res dto.ProvisioningResult) error {
	s.rows = append(s.rows, rowEvent{email: rec.Email, status: res.Status})
	return nil
}

func (s *fakeSink) ProduceRunSummary(_ context.Context, succeeded, failed int) error {
	s.succeeded = succeeded
	s.failed = failed
	s.summaries++
	return nil
}

func newTestEngine(hr *fakeHR, tracker *fakeTracker, source *fakeSource, notifier *fakeNotifier, events EventSink) (*Engine, *[]time.Duration) {
	e := NewEngine(Deps{
		HR:       hr,
		Tracker:  tracker,
		Source:   source,
		Notifier: notifier,
		Events:   events,
		Log:      zerolog.Nop(),
	})
	var slept []time.Duration
	e.sleep = func(d time.Duration) { slept = append(slept, d) }
	return e, &slept
}

func hire(row int, email string) dto.HireRecord {
	return dto.HireRecord{
		Row:       row,
		FirstName: "Test",
		LastName:  "Hire",
		Email:     email,
		StartDate: "2025-07-01",
	}
}

func TestRun_NewHireHappyPath(t *testing.T) {
	t.Parallel()

	hr := &fakeHR{}
	tracker := &fakeTracker{}
	source := &fakeSource{records: []dto.HireRecord{hire(2, "ada@example.com")}}
	notifier := &fakeNotifier{}
	e, slept := newTestEngine(hr, tracker, source, notifier, nil)

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	want := []string{
		"find-employee:ada@example.com",
		"find-candidate:ada@example.com",
		"create:ada@example.com",
		"update:id-ada@example.com",
		"comp:id-ada@example.com",
		"portal:ada@example.com",
		"signature:ada@example.com",
		"packet:id-ada@example.com",
	}
	if len(hr.calls) != len(want) {
		t.Fatalf("unexpected call sequence: %v", hr.calls)
	}
	for i, c := range want {
		if hr.calls[i] != c {
			t.Errorf("call %d = %q, want %q", i, hr.calls[i], c)
		}
	}
	if tracker.calls != 1 {
		t.Errorf("tracker called %d times", tracker.calls)
	}

	if len(source.writes) != 1 {
		t.Fatalf("expected one write-back, got %d", len(source.writes))
	}
	w := source.writes[0]
	if w.row != 2 || w.status != dto.StatusSuccess || w.notes != "OK" {
		t.Errorf("unexpected write-back: %+v", w)
	}

	if len(notifier.messages) != 1 || notifier.messages[0] != "Onboarding run complete: 1 succeeded, 0 failed." {
		t.Errorf("unexpected summary: %v", notifier.messages)
	}
	if len(*slept) != 1 || (*slept)[0] != time.Second {
		t.Errorf("expected one 1s pause, got %v", *slept)
	}
}

func TestRun_TrackedCandidateIsHiredNotCreated(t *testing.T) {
	t.Parallel()

	hr := &fakeHR{candidates: map[string]string{"bob@example.com": "C7"}}
	source := &fakeSource{records: []dto.HireRecord{hire(3, "bob@example.com")}}
	e, _ := newTestEngine(hr, &fakeTracker{}, source, &fakeNotifier{}, nil)

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if hr.called("create:") {
		t.Error("a tracked candidate must be hired, not created")
	}
	if !hr.called("hire:C7") {
		t.Errorf("expected hire call, got %v", hr.calls)
	}
	if !hr.called("update:hired-C7") {
		t.Errorf("enrichment must target the hired employee ID, got %v", hr.calls)
	}
}

func TestRun_ExistingEmployeeSoftFailuresWarnOnly(t *testing.T) {
	t.Parallel()

	hr := &fakeHR{
		employees: map[string]string{"ada@example.com": "E1"},
		errs: map[string]error{
			"portal:ada@example.com":    errors.New("portal down"),
			"signature:ada@example.com": errors.New("signature down"),
			"packet:E1":                 errors.New("packet down"),
		},
	}
	tracker := &fakeTracker{err: errors.New("tracker down")}
	source := &fakeSource{records: []dto.HireRecord{hire(2, "ada@example.com")}}
	e, _ := newTestEngine(hr, tracker, source, &fakeNotifier{}, nil)

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if hr.called("create:") || hr.called("hire:") {
		t.Errorf("an existing employee must not be created or hired: %v", hr.calls)
	}
	w := source.writes[0]
	if w.status != dto.StatusSuccess || w.notes != "OK" {
		t.Errorf("re-provisioning failures must not fail an existing employee: %+v", w)
	}
}

func TestRun_UpdateFailureShortCircuits(t *testing.T) {
	t.Parallel()

	hr := &fakeHR{errs: map[string]error{
		"update:id-ada@example.com": errors.New("boom"),
	}}
	tracker := &fakeTracker{}
	source := &fakeSource{records: []dto.HireRecord{hire(2, "ada@example.com")}}
	e, _ := newTestEngine(hr, tracker, source, &fakeNotifier{}, nil)

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	w := source.writes[0]
	if w.status != dto.StatusFailed {
		t.Errorf("expected failed status, got %q", w.status)
	}
	if !strings.HasPrefix(w.notes, "Update Error: ") {
		t.Errorf("unexpected notes: %q", w.notes)
	}
	if hr.called("comp:") || hr.called("portal:") || hr.called("signature:") {
		t.Errorf("a hard gate failure must stop the row: %v", hr.calls)
	}
	if tracker.calls != 0 {
		t.Errorf("tracker must not run after a hard gate failure")
	}
}

func TestRun_BestEffortFailuresAccumulateNotes(t *testing.T) {
	t.Parallel()

	hr := &fakeHR{errs: map[string]error{
		"signature:ada@example.com": errors.New("sig down"),
	}}
	tracker := &fakeTracker{err: errors.New("tracker down")}
	source := &fakeSource{records: []dto.HireRecord{hire(2, "ada@example.com")}}
	e, _ := newTestEngine(hr, tracker, source, &fakeNotifier{}, nil)

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if !hr.called("packet:") {
		t.Errorf("a best-effort failure must not stop later steps: %v", hr.calls)
	}
	w := source.writes[0]
	if w.status != dto.StatusFailed {
		t.Errorf("accumulated notes must fail the row, got %q", w.status)
	}
	if !strings.Contains(w.notes, "BambooHR error: sig down") || !strings.Contains(w.notes, "WebWork error: tracker down") {
		t.Errorf("notes must carry every best-effort failure: %q", w.notes)
	}
}

func TestRun_PortalEndpointUnavailableIsSkipped(t *testing.T) {
	t.Parallel()

	hr := &fakeHR{errs: map[string]error{
		"portal:ada@example.com": dto.ErrEndpointUnavailable,
	}}
	source := &fakeSource{records: []dto.HireRecord{hire(2, "ada@example.com")}}
	e, _ := newTestEngine(hr, &fakeTracker{}, source, &fakeNotifier{}, nil)

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if w := source.writes[0]; w.status != dto.StatusSuccess || w.notes != "OK" {
		t.Errorf("a disabled portal endpoint must not fail the row: %+v", w)
	}
}

func TestRun_ThreeRowBatch(t *testing.T) {
	t.Parallel()

	hr := &fakeHR{errs: map[string]error{
		"update:id-bob@example.com":  errors.New("dup record"),
		"packet:id-cora@example.com": errors.New("packet rejected"),
	}}
	source := &fakeSource{records: []dto.HireRecord{
		hire(2, "ada@example.com"),
		hire(3, "bob@example.com"),
		hire(4, "cora@example.com"),
	}}
	notifier := &fakeNotifier{}
	sink := &fakeSink{}
	e, slept := newTestEngine(hr, &fakeTracker{}, source, notifier, sink)

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(source.writes) != 3 {
		t.Fatalf("expected 3 write-backs, got %d", len(source.writes))
	}
	wants := []writeBack{
		{row: 2, status: dto.StatusSuccess, notes: "OK"},
		{row: 3, status: dto.StatusFailed, notes: "Update Error: dup record"},
		{row: 4, status: dto.StatusFailed, notes: "New hire packet error: packet rejected"},
	}
	for i, want := range wants {
		if source.writes[i] != want {
			t.Errorf("write %d = %+v, want %+v", i, source.writes[i], want)
		}
	}

	if len(notifier.messages) != 1 || notifier.messages[0] != "Onboarding run complete: 1 succeeded, 2 failed." {
		t.Errorf("unexpected summary: %v", notifier.messages)
	}
	if len(*slept) != 3 {
		t.Errorf("every row gets a pause, got %d", len(*slept))
	}

	if len(sink.rows) != 3 || sink.rows[1].status != dto.StatusFailed {
		t.Errorf("unexpected audit row events: %+v", sink.rows)
	}
	if sink.summaries != 1 || sink.succeeded != 1 || sink.failed != 2 {
		t.Errorf("unexpected audit summary: %+v", sink)
	}
}

func TestRun_EmptyBatch(t *testing.T) {
	t.Parallel()

	source := &fakeSource{}
	notifier := &fakeNotifier{}
	e, slept := newTestEngine(&fakeHR{}, &fakeTracker{}, source, notifier, nil)

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(notifier.messages) != 1 || notifier.messages[0] != "No new hires to process." {
		t.Errorf("unexpected messages: %v", notifier.messages)
	}
	if len(source.writes) != 0 || len(*slept) != 0 {
		t.Error("an empty batch must not write or pause")
	}
}

func TestRun_SourceErrorAborts(t *testing.T) {
	t.Parallel()

	source := &fakeSource{pendingErr: errors.New("sheet unreachable")}
	notifier := &fakeNotifier{}
	e, _ := newTestEngine(&fakeHR{}, &fakeTracker{}, source, notifier, nil)

	err := e.Run(context.Background())
	if err == nil {
		t.Fatal("expected error when the task source fails")
	}
	if len(notifier.messages) != 1 || !strings.Contains(notifier.messages[0], "Onboarding automation failed") {
		t.Errorf("batch failures must be announced: %v", notifier.messages)
	}
}

func TestRun_WriteBackFailureDoesNotAbort(t *testing.T) {
	t.Parallel()

	source := &fakeSource{
		records:  []dto.HireRecord{hire(2, "ada@example.com"), hire(3, "bob@example.com")},
		writeErr: errors.New("sheet write refused"),
	}
	notifier := &fakeNotifier{}
	e, _ := newTestEngine(&fakeHR{}, &fakeTracker{}, source, notifier, nil)

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(source.writes) != 2 {
		t.Errorf("both rows must still be attempted, got %d writes", len(source.writes))
	}
	if notifier.messages[0] != "Onboarding run complete: 2 succeeded, 0 failed." {
		t.Errorf("unexpected summary: %v", notifier.messages)
	}
}

type panickingTracker struct{}

func (panickingTracker) CreateAccount(context.Context, dto.HireRecord) (string, error) {
	panic("nil map write")
}

func TestRun_PanicMarksRowFailed(t *testing.T) {
	t.Parallel()

	source := &fakeSource{records: []dto.HireRecord{hire(2, "ada@example.com")}}
	notifier := &fakeNotifier{}
	e := NewEngine(Deps{
		HR:       &fakeHR{},
		Tracker:  panickingTracker{},
		Source:   source,
		Notifier: notifier,
		Log:      zerolog.Nop(),
	})
	e.sleep = func(time.Duration) {}

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("a panicking row must not abort the run: %v", err)
	}
	w := source.writes[0]
	if w.status != dto.StatusFailed || !strings.Contains(w.notes, "Unexpected error: nil map write") {
		t.Errorf("unexpected write-back after panic: %+v", w)
	}
	if notifier.messages[0] != "Onboarding run complete: 0 succeeded, 1 failed." {
		t.Errorf("unexpected summary: %v", notifier.messages)
	}
}
