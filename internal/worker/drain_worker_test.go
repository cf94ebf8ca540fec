package worker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/eprhub/prn-integration/internal/backend"
	"github.com/eprhub/prn-integration/internal/domain"
	"github.com/eprhub/prn-integration/internal/notify"
	"github.com/eprhub/prn-integration/internal/queue"
	"github.com/eprhub/prn-integration/internal/validator"
)

func validPrn(evidenceNo string) domain.Prn {
	issued := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	return domain.Prn{
		EvidenceNo:         evidenceNo,
		AccreditationNo:    "ACC-100",
		AccreditationYear:  2026,
		EvidenceStatusCode: domain.StatusAwaitingAccept,
		EvidenceMaterial:   "Plastic",
		EvidenceTonnes:     25,
		IssuedToEPRID:      "6b29fc40-ca47-1067-b31d-00dd010662da",
		IssueDate:          &issued,
	}
}

type drainFixture struct {
	transport *queue.MockTransport
	prns      *backend.MockPrnService
	orgs      *backend.MockOrganisationService
	notifier  *notify.MockDispatcher
	worker    *DrainWorker

	saved, dead, requeued int
}

func newDrainFixture(t *testing.T) *drainFixture {
	t.Helper()
	f := &drainFixture{
		transport: queue.NewMockTransport(),
		prns:      backend.NewMockPrnService(),
		orgs:      backend.NewMockOrganisationService(),
		notifier:  notify.NewMockDispatcher(),
	}
	f.orgs.Emails["6b29fc40-ca47-1067-b31d-00dd010662da"] = []domain.PersonEmail{
		{Email: "ops@acme.example", FirstName: "Sam", LastName: "Ops"},
	}
	f.worker = NewDrainWorker(
		f.transport,
		validator.NewRuleValidator(),
		f.prns,
		f.orgs,
		f.notifier,
		10,
		time.Minute,
		zap.NewNop(),
		DrainHooks{
			OnSaved:        func() { f.saved++ },
			OnDeadLettered: func() { f.dead++ },
			OnRequeued:     func() { f.requeued++ },
		},
	)
	return f
}

func TestDrain_InvalidRecordIsolatedFromBatch(t *testing.T) {
	ctx := context.Background()
	f := newDrainFixture(t)

	invalid := validPrn("PRN-2")
	invalid.EvidenceMaterial = "Concrete"
	f.transport.EnqueueWork(ctx, []domain.Prn{validPrn("PRN-1"), invalid, validPrn("PRN-3")})

	if err := f.worker.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	saved := f.prns.Saved()
	if len(saved) != 2 {
		t.Fatalf("expected 2 saved, got %d", len(saved))
	}
	if saved[0].EvidenceNo != "PRN-1" || saved[1].EvidenceNo != "PRN-3" {
		t.Errorf("saved order = %s, %s", saved[0].EvidenceNo, saved[1].EvidenceNo)
	}

	_, _, errored, _ := f.transport.Depths(ctx)
	if errored != 1 {
		t.Errorf("error lane depth = %d, want 1", errored)
	}
	if f.saved != 2 || f.dead != 1 || f.requeued != 0 {
		t.Errorf("hooks saved/dead/requeued = %d/%d/%d", f.saved, f.dead, f.requeued)
	}

	dead, _ := f.transport.PeekErrors(ctx, 1)
	reason := f.transport.DeadReason(dead[0].ID)
	if !strings.Contains(reason, "material") {
		t.Errorf("dead-letter reason = %q, want a material reason", reason)
	}
}

func TestDrain_MalformedBodyDeadLettered(t *testing.T) {
	ctx := context.Background()
	f := newDrainFixture(t)
	f.transport.EnqueueRaw([]byte("{not json"))

	if err := f.worker.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	dead, _ := f.transport.PeekErrors(ctx, 1)
	if len(dead) != 1 {
		t.Fatalf("expected 1 dead-lettered message, got %d", len(dead))
	}
	if reason := f.transport.DeadReason(dead[0].ID); !strings.Contains(reason, "malformed body") {
		t.Errorf("reason = %q", reason)
	}
	if f.prns.SaveCalls() != 0 {
		t.Errorf("save called %d times for malformed body", f.prns.SaveCalls())
	}
}

func TestDrain_TransientSaveFailureRequeuedThenSaved(t *testing.T) {
	ctx := context.Background()
	f := newDrainFixture(t)
	f.prns.SaveErrs = []error{errors.New("backend down")}
	f.transport.EnqueueWork(ctx, []domain.Prn{validPrn("PRN-1")})

	// First pass: save fails, the message lands on the retry lane. The
	// requeue delay keeps it there, so this pass attempts the save
	// exactly once instead of looping on the failing backend.
	if err := f.worker.Drain(ctx); err != nil {
		t.Fatalf("first drain: %v", err)
	}
	if f.requeued != 1 || f.saved != 0 {
		t.Fatalf("after first pass saved/requeued = %d/%d", f.saved, f.requeued)
	}
	if f.prns.SaveCalls() != 1 {
		t.Fatalf("save attempted %d times in one pass, want 1", f.prns.SaveCalls())
	}

	// Second pass: the retry lane feeds back in and the save succeeds.
	if err := f.worker.Drain(ctx); err != nil {
		t.Fatalf("second drain: %v", err)
	}
	if len(f.prns.Saved()) != 1 {
		t.Fatalf("expected 1 saved after retry, got %d", len(f.prns.Saved()))
	}
	work, retry, errored, _ := f.transport.Depths(ctx)
	if work != 0 || retry != 0 || errored != 0 {
		t.Errorf("depths = %d/%d/%d, want all empty", work, retry, errored)
	}
}

func TestDrain_RecipientLookupFailureRequeues(t *testing.T) {
	ctx := context.Background()
	f := newDrainFixture(t)
	f.orgs.Err = errors.New("org service down")
	f.transport.EnqueueWork(ctx, []domain.Prn{validPrn("PRN-1")})

	if err := f.worker.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if f.requeued != 1 {
		t.Errorf("requeued = %d, want 1", f.requeued)
	}
	if f.saved != 0 {
		t.Errorf("saved hook fired despite unresolved recipients")
	}
	if f.prns.SaveCalls() != 1 {
		t.Errorf("record processed %d times in one pass, want 1", f.prns.SaveCalls())
	}
}

func TestDrain_NotifyFailureDoesNotFlipOutcome(t *testing.T) {
	ctx := context.Background()
	f := newDrainFixture(t)
	f.notifier.SendErr = errors.New("email gateway down")
	f.transport.EnqueueWork(ctx, []domain.Prn{validPrn("PRN-1")})

	if err := f.worker.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if f.saved != 1 || f.requeued != 0 || f.dead != 0 {
		t.Errorf("hooks saved/dead/requeued = %d/%d/%d, want 1/0/0", f.saved, f.dead, f.requeued)
	}
}

func TestDrain_NotificationCarriesExportFlag(t *testing.T) {
	ctx := context.Background()
	f := newDrainFixture(t)
	f.transport.EnqueueWork(ctx, []domain.Prn{validPrn("EX-500"), validPrn("PRN-1")})

	if err := f.worker.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	sent := f.notifier.Notifications()
	if len(sent) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(sent))
	}
	if !sent[0].IsExport {
		t.Errorf("EX-500 notification not flagged as export")
	}
	if sent[1].IsExport {
		t.Errorf("PRN-1 notification wrongly flagged as export")
	}
	if sent[0].Email != "ops@acme.example" {
		t.Errorf("recipient = %q", sent[0].Email)
	}
}

func TestDrain_ReceiveErrorIsFatal(t *testing.T) {
	f := newDrainFixture(t)
	f.transport.ReceiveErr = errors.New("connection lost")

	if err := f.worker.Drain(context.Background()); err == nil {
		t.Fatal("expected receive failure to surface")
	}
}
