package agreement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"caresign/party"
)

func TestConvert_ClientSignerWithTemplate(t *testing.T) {
	clientID := "c1"
	templateID := "t1"
	repo := newFakeConvertRepo()
	repo.scheduled["sa1"] = Scheduled{
		ID:           "sa1",
		Title:        "Care Consent",
		Status:       ScheduledStatusUpcoming,
		TemplateID:   &templateID,
		WithClientID: &clientID,
		WithName:     "Margaret Hale",
	}
	repo.templates[templateID] = Template{
		ID:      templateID,
		Content: "I, {{CLIENT_NAME}}, agree to {{AGREEMENT_TITLE}} on {{TODAY}}.",
	}

	authUser := "u1"
	parties := &fakeParties{clients: map[string]party.Person{
		clientID: {ID: clientID, FullName: "Margaret Hale", AuthUserID: &authUser},
	}}

	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	svc := NewConversionService(repo, parties, nil).WithClock(func() time.Time { return now })

	outcome, err := svc.Convert(context.Background(), "sa1")
	if err != nil {
		t.Fatalf("convert: unexpected error: %v", err)
	}

	if outcome.AgreementID == "" || outcome.SignerID == "" {
		t.Fatalf("expected ids in outcome, got %+v", outcome)
	}

	created, ok := repo.agreements[outcome.AgreementID]
	if !ok {
		t.Fatalf("agreement %s was not inserted", outcome.AgreementID)
	}
	if created.Content == nil {
		t.Fatal("expected rendered content")
	}
	want := "I, Margaret Hale, agree to Care Consent on 14 March 2026."
	if *created.Content != want {
		t.Fatalf("content mismatch:\n got: %s\nwant: %s", *created.Content, want)
	}
	if strings.Contains(*created.Content, "{{") {
		t.Fatalf("unresolved placeholder in content: %s", *created.Content)
	}
	if created.SigningParty != SignerTypeClient {
		t.Fatalf("expected client signing party, got %s", created.SigningParty)
	}
	if created.SignedByClientID == nil || *created.SignedByClientID != clientID {
		t.Fatalf("expected signed_by_client_id %s, got %v", clientID, created.SignedByClientID)
	}

	signer, ok := repo.signers[outcome.SignerID]
	if !ok {
		t.Fatalf("signer %s was not inserted", outcome.SignerID)
	}
	if signer.SignerType != SignerTypeClient {
		t.Fatalf("expected signer type client, got %s", signer.SignerType)
	}
	if signer.SignerID == nil || *signer.SignerID != clientID {
		t.Fatalf("expected signer id %s, got %v", clientID, signer.SignerID)
	}
	if signer.SignerAuthUser == nil || *signer.SignerAuthUser != authUser {
		t.Fatalf("expected signer auth user %s, got %v", authUser, signer.SignerAuthUser)
	}

	if len(repo.completed) != 1 || repo.completed[0] != "sa1" {
		t.Fatalf("expected scheduled sa1 marked completed, got %v", repo.completed)
	}
	if len(outcome.Degraded) != 0 {
		t.Fatalf("expected no degraded steps, got %v", outcome.Degraded)
	}
}

func TestConvert_StaffSigner(t *testing.T) {
	staffID := "s7"
	repo := newFakeConvertRepo()
	repo.scheduled["sa2"] = Scheduled{
		ID:          "sa2",
		Title:       "Employment Terms",
		WithStaffID: &staffID,
		WithName:    "Devon Price",
	}

	parties := &fakeParties{staff: map[string]party.Person{
		staffID: {ID: staffID, FullName: "Devon Price"},
	}}

	svc := NewConversionService(repo, parties, nil)
	outcome, err := svc.Convert(context.Background(), "sa2")
	if err != nil {
		t.Fatalf("convert: unexpected error: %v", err)
	}

	signer := repo.signers[outcome.SignerID]
	if signer.SignerType != SignerTypeStaff {
		t.Fatalf("expected signer type staff, got %s", signer.SignerType)
	}
	created := repo.agreements[outcome.AgreementID]
	if created.SignedByStaffID == nil || *created.SignedByStaffID != staffID {
		t.Fatalf("expected signed_by_staff_id %s, got %v", staffID, created.SignedByStaffID)
	}
	if created.Content != nil {
		t.Fatal("expected nil content without a template")
	}
}

func TestConvert_UnresolvedPartyFallsBackToOther(t *testing.T) {
	clientID := "missing"
	repo := newFakeConvertRepo()
	repo.scheduled["sa3"] = Scheduled{
		ID:           "sa3",
		Title:        "Visitor Agreement",
		WithClientID: &clientID,
		WithName:     "A. Visitor",
	}

	svc := NewConversionService(repo, &fakeParties{}, nil)
	outcome, err := svc.Convert(context.Background(), "sa3")
	if err != nil {
		t.Fatalf("convert: unexpected error: %v", err)
	}

	signer := repo.signers[outcome.SignerID]
	if signer.SignerType != SignerTypeOther {
		t.Fatalf("expected fallback signer type other, got %s", signer.SignerType)
	}
	if signer.SignerName != "A. Visitor" {
		t.Fatalf("expected scheduled_with_name fallback, got %s", signer.SignerName)
	}
}

func TestConvert_ScheduledNotFound(t *testing.T) {
	repo := newFakeConvertRepo()
	svc := NewConversionService(repo, &fakeParties{}, nil)

	_, err := svc.Convert(context.Background(), "nope")
	if !errors.Is(err, ErrScheduledNotFound) {
		t.Fatalf("expected ErrScheduledNotFound, got %v", err)
	}
	if len(repo.agreements) != 0 || len(repo.signers) != 0 {
		t.Fatal("expected no rows created for missing scheduled agreement")
	}
}

func TestConvert_CompensatesWhenSignerInsertFails(t *testing.T) {
	repo := newFakeConvertRepo()
	repo.scheduled["sa4"] = Scheduled{ID: "sa4", Title: "Care Plan", WithName: "Someone"}
	repo.insertSignerErr = errors.New("boom")

	svc := NewConversionService(repo, &fakeParties{}, nil)
	_, err := svc.Convert(context.Background(), "sa4")
	if err == nil {
		t.Fatal("expected error when signer insert fails")
	}

	if len(repo.deleted) != 1 {
		t.Fatalf("expected one compensating delete, got %v", repo.deleted)
	}
	if _, exists := repo.agreements[repo.deleted[0]]; exists {
		t.Fatal("expected agreement removed by compensating delete")
	}
	if len(repo.completed) != 0 {
		t.Fatal("scheduled agreement must not be completed after a failed conversion")
	}
}

func TestConvert_StatusFlipFailureIsDegradedNotFatal(t *testing.T) {
	repo := newFakeConvertRepo()
	repo.scheduled["sa5"] = Scheduled{ID: "sa5", Title: "Respite Care", WithName: "Someone"}
	repo.completeErr = errors.New("timeout")

	svc := NewConversionService(repo, &fakeParties{}, nil)
	outcome, err := svc.Convert(context.Background(), "sa5")
	if err != nil {
		t.Fatalf("status flip failure must not fail the conversion: %v", err)
	}
	if len(outcome.Degraded) != 1 {
		t.Fatalf("expected one degraded step, got %v", outcome.Degraded)
	}
	if outcome.AgreementID == "" || outcome.SignerID == "" {
		t.Fatalf("expected ids despite degraded flip, got %+v", outcome)
	}
}

type fakeConvertRepo struct {
	scheduled map[string]Scheduled
	templates map[string]Template

	agreements map[string]NewAgreement
	signers    map[string]NewSigner
	deleted    []string
	completed  []string

	insertAgreementErr error
	insertSignerErr    error
	completeErr        error

	nextID int
}

func newFakeConvertRepo() *fakeConvertRepo {
	return &fakeConvertRepo{
		scheduled:  make(map[string]Scheduled),
		templates:  make(map[string]Template),
		agreements: make(map[string]NewAgreement),
		signers:    make(map[string]NewSigner),
		nextID:     1,
	}
}

func (f *fakeConvertRepo) GetScheduled(_ context.Context, id string) (Scheduled, error) {
	rec, ok := f.scheduled[id]
	if !ok {
		return Scheduled{}, ErrScheduledNotFound
	}
	return rec, nil
}

func (f *fakeConvertRepo) GetTemplate(_ context.Context, id string) (Template, error) {
	tpl, ok := f.templates[id]
	if !ok {
		return Template{}, ErrTemplateNotFound
	}
	return tpl, nil
}

func (f *fakeConvertRepo) InsertAgreement(_ context.Context, params NewAgreement) (string, error) {
	if f.insertAgreementErr != nil {
		return "", f.insertAgreementErr
	}
	id := fmt.Sprintf("agr-%d", f.nextID)
	f.nextID++
	f.agreements[id] = params
	return id, nil
}

func (f *fakeConvertRepo) DeleteAgreement(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.agreements, id)
	return nil
}

func (f *fakeConvertRepo) InsertSigner(_ context.Context, params NewSigner) (string, error) {
	if f.insertSignerErr != nil {
		return "", f.insertSignerErr
	}
	id := fmt.Sprintf("sgn-%d", f.nextID)
	f.nextID++
	f.signers[id] = params
	return id, nil
}

func (f *fakeConvertRepo) MarkScheduledCompleted(_ context.Context, id string) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completed = append(f.completed, id)
	return nil
}

type fakeParties struct {
	clients map[string]party.Person
	staff   map[string]party.Person
}

func (f *fakeParties) GetClient(_ context.Context, id string) (party.Person, error) {
	p, ok := f.clients[id]
	if !ok {
		return party.Person{}, party.ErrClientNotFound
	}
	return p, nil
}

func (f *fakeParties) GetStaff(_ context.Context, id string) (party.Person, error) {
	p, ok := f.staff[id]
	if !ok {
		return party.Person{}, party.ErrStaffNotFound
	}
	return p, nil
}
