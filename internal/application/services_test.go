package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"practice-governance/internal/adapters/memory"
	"practice-governance/internal/domain"
)

type docRepoMock struct{ mock.Mock }

func (m *docRepoMock) Create(ctx context.Context, doc domain.Document, entry domain.AuditLogEntry) error {
	args := m.Called(ctx, doc, entry)
	return args.Error(0)
}

func (m *docRepoMock) GetByID(ctx context.Context, docID string) (domain.Document, error) {
	args := m.Called(ctx, docID)
	return args.Get(0).(domain.Document), args.Error(1)
}

func (m *docRepoMock) Save(ctx context.Context, doc domain.Document, expectedVersion int, entry domain.AuditLogEntry) error {
	args := m.Called(ctx, doc, expectedVersion, entry)
	return args.Error(0)
}

type auditLogMock struct{ mock.Mock }

func (m *auditLogMock) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *auditLogMock) List(ctx context.Context) ([]domain.AuditLogEntry, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.AuditLogEntry), args.Error(1)
}

func (m *auditLogMock) ListByDocument(ctx context.Context, docID string) ([]domain.AuditLogEntry, error) {
	args := m.Called(ctx, docID)
	return args.Get(0).([]domain.AuditLogEntry), args.Error(1)
}

type recordingLogger struct {
	warnings []string
	infos    []string
}

func (l *recordingLogger) Info(_ context.Context, msg string, _ ...any)  { l.infos = append(l.infos, msg) }
func (l *recordingLogger) Warn(_ context.Context, msg string, _ ...any)  { l.warnings = append(l.warnings, msg) }
func (l *recordingLogger) Error(context.Context, string, ...any)         {}
func (l *recordingLogger) Debug(context.Context, string, ...any)         {}

type recorderMock struct {
	access  map[bool]int
	actions map[string]int
}

func newRecorderMock() *recorderMock {
	return &recorderMock{access: map[bool]int{}, actions: map[string]int{}}
}

func (r *recorderMock) ObserveAccess(_ string, allowed bool) { r.access[allowed]++ }
func (r *recorderMock) ObserveAction(action, outcome string) { r.actions[action+":"+outcome]++ }

func testWorkflow() *domain.Workflow {
	wf := NewWorkflow(domain.DefaultRegistry())
	wf.Now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
	return wf
}

var (
	juniorA1  = domain.Actor{ID: "A1", Role: domain.RoleJuniorAssociate}
	partnerA1 = domain.Actor{ID: "A1", Role: domain.RolePartner}
	partnerA2 = domain.Actor{ID: "A2", Role: domain.RolePartner}
)

func TestAccessService_Decisions(t *testing.T) {
	metrics := newRecorderMock()
	svc := NewAccessService(domain.DefaultRegistry(), &recordingLogger{}, metrics)
	ctx := context.Background()

	assert.False(t, svc.CanAccessSurface(ctx, domain.RoleTenantAdmin, domain.SurfacePlatformOps))
	assert.True(t, svc.CanAccessSurface(ctx, domain.RoleGlobalAdmin, domain.SurfacePlatformOps))
	assert.True(t, svc.CanPerformAction(ctx, domain.RolePartner, domain.ActionApproveDocument))
	assert.False(t, svc.CanPerformAction(ctx, domain.RoleClient, domain.ActionApproveDocument))

	assert.Equal(t, 2, metrics.access[true])
	assert.Equal(t, 2, metrics.access[false])
}

func TestAccessService_CanViewDocuments(t *testing.T) {
	svc := NewAccessService(domain.DefaultRegistry(), &recordingLogger{}, nil)
	ctx := context.Background()

	for _, role := range []domain.Role{domain.RoleJuniorAssociate, domain.RoleExternalCounsel, domain.RoleSeniorCounsel,
		domain.RolePartner, domain.RoleLegalOpsManager, domain.RoleComplianceOfficer, domain.RoleGlobalAdmin} {
		assert.True(t, svc.CanViewDocuments(ctx, role), role)
	}
	for _, role := range []domain.Role{domain.RoleClient, domain.RoleFinanceBilling, domain.RoleExecutiveBoard,
		domain.RoleTenantAdmin, "UNKNOWN"} {
		assert.False(t, svc.CanViewDocuments(ctx, role), role)
	}
}

func TestAccessService_VisibleSurfaces(t *testing.T) {
	svc := NewAccessService(domain.DefaultRegistry(), &recordingLogger{}, nil)

	assert.Equal(t,
		[]domain.Surface{domain.SurfaceDashboard, domain.SurfaceSettings, domain.SurfaceVault},
		svc.VisibleSurfaces(domain.RoleClient))
	assert.Len(t, svc.VisibleSurfaces(domain.RoleGlobalAdmin), len(domain.DefaultSurfaceTable()))
	assert.Equal(t,
		[]domain.Surface{domain.SurfaceDashboard, domain.SurfaceSettings},
		svc.VisibleSurfaces("UNKNOWN"))
}

func TestWorkflowService_ExecuteActionScenario(t *testing.T) {
	audit := memory.NewAuditLog()
	logger := &recordingLogger{}
	svc := NewWorkflowService(testWorkflow(), memory.NewDocumentRepository(audit), audit, logger, nil)
	ctx := context.Background()

	doc, err := svc.ExecuteAction(ctx, domain.Document{ID: "doc-1"}, domain.ActionCreateDraft, juniorA1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, doc.ApprovalStatus)
	assert.Equal(t, "A1", doc.CreatorID)

	doc, err = svc.ExecuteAction(ctx, doc, domain.ActionSubmitReview, juniorA1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReview, doc.ApprovalStatus)

	_, err = svc.ExecuteAction(ctx, doc, domain.ActionApproveDocument, partnerA1)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSeparationOfDuties)
	assert.Contains(t, err.Error(), "Separation of Duties")
	assert.Equal(t, 2, audit.Len(), "denials are not audit entries")
	assert.Contains(t, logger.warnings, "workflow action denied")

	approved, err := svc.ExecuteAction(ctx, doc, domain.ActionApproveDocument, partnerA2)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.ApprovalStatus)
	assert.Equal(t, domain.StatusReview, doc.ApprovalStatus)

	entries, err := svc.AuditLog(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	last := entries[2]
	assert.Equal(t, domain.ActionApproveDocument, last.Action)
	assert.Equal(t, "A2", last.ActorID)
	assert.NotEmpty(t, last.ApprovalToken)
	assert.NotEmpty(t, last.ID)
}

func TestWorkflowService_AuditCompleteness(t *testing.T) {
	audit := memory.NewAuditLog()
	svc := NewWorkflowService(testWorkflow(), memory.NewDocumentRepository(audit), audit, &recordingLogger{}, nil)
	ctx := context.Background()

	steps := []struct {
		action domain.WorkflowAction
		actor  domain.Actor
	}{
		{domain.ActionCreateDraft, juniorA1},
		{domain.ActionEditDraft, juniorA1},
		{domain.ActionSubmitReview, juniorA1},
		{domain.ActionApproveDocument, partnerA2},
		{domain.ActionExportFinal, partnerA2},
	}
	doc := domain.Document{ID: "doc-7"}
	for _, step := range steps {
		before := audit.Len()
		next, err := svc.ExecuteAction(ctx, doc, step.action, step.actor)
		require.NoError(t, err, "step %s", step.action)
		require.Equal(t, before+1, audit.Len())

		entries, _ := audit.List(ctx)
		last := entries[len(entries)-1]
		assert.Equal(t, step.action, last.Action)
		assert.Equal(t, step.actor.ID, last.ActorID)
		assert.Equal(t, doc.ID, last.DocumentID)
		doc = next
	}
}

func TestWorkflowService_ExportGate(t *testing.T) {
	audit := new(auditLogMock)
	metrics := newRecorderMock()
	svc := NewWorkflowService(testWorkflow(), new(docRepoMock), audit, &recordingLogger{}, metrics)

	doc := domain.Document{ID: "doc-1", ApprovalStatus: domain.StatusDraft, CreatorID: "A1"}
	_, err := svc.ExecuteAction(context.Background(), doc, domain.ActionExportFinal, partnerA2)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, "Only APPROVED documents can be exported.", err.Error())
	audit.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	assert.Equal(t, 1, metrics.actions["export_final:denied"])
}

func TestWorkflowService_ExecuteActionRequiresActor(t *testing.T) {
	svc := NewWorkflowService(testWorkflow(), new(docRepoMock), new(auditLogMock), &recordingLogger{}, nil)
	_, err := svc.ExecuteAction(context.Background(), domain.Document{ID: "d"}, domain.ActionCreateDraft, domain.Actor{Role: domain.RolePartner})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestWorkflowService_AuditFailurePropagates(t *testing.T) {
	audit := new(auditLogMock)
	svc := NewWorkflowService(testWorkflow(), new(docRepoMock), audit, &recordingLogger{}, nil)
	expectedErr := errors.New("audit sink down")
	audit.On("Append", mock.Anything, mock.Anything).Return(expectedErr)

	_, err := svc.ExecuteAction(context.Background(), domain.Document{ID: "d"}, domain.ActionCreateDraft, juniorA1)
	assert.ErrorIs(t, err, expectedErr)
}

func TestWorkflowService_CreateDocument(t *testing.T) {
	docs := new(docRepoMock)
	audit := new(auditLogMock)
	svc := NewWorkflowService(testWorkflow(), docs, audit, &recordingLogger{}, nil)

	docs.On("Create", mock.Anything, mock.MatchedBy(func(d domain.Document) bool {
		return d.ID != "" && d.Title == "Engagement letter" && d.Classification == "CONFIDENTIAL" &&
			d.ApprovalStatus == domain.StatusDraft && d.CreatorID == "A1" && d.Version == 1
	}), mock.MatchedBy(func(e domain.AuditLogEntry) bool {
		return e.Action == domain.ActionCreateDraft && e.ActorID == "A1" && e.ResultingStatus == domain.StatusDraft
	})).Return(nil)

	doc, err := svc.CreateDocument(context.Background(), juniorA1, " Engagement letter ", "confidential")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, doc.ApprovalStatus)
	docs.AssertExpectations(t)
	audit.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestWorkflowService_CreateDocumentDenied(t *testing.T) {
	docs := new(docRepoMock)
	audit := new(auditLogMock)
	svc := NewWorkflowService(testWorkflow(), docs, audit, &recordingLogger{}, nil)

	_, err := svc.CreateDocument(context.Background(), domain.Actor{ID: "C1", Role: domain.RoleClient}, "Brief", "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)

	_, err = svc.CreateDocument(context.Background(), juniorA1, "   ", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestWorkflowService_ExecutePersistsWithVersionCheck(t *testing.T) {
	docs := new(docRepoMock)
	audit := new(auditLogMock)
	svc := NewWorkflowService(testWorkflow(), docs, audit, &recordingLogger{}, nil)

	stored := domain.Document{ID: "d1", ApprovalStatus: domain.StatusReview, CreatorID: "A1", Version: 3}
	docs.On("GetByID", mock.Anything, "d1").Return(stored, nil)
	docs.On("Save", mock.Anything, mock.MatchedBy(func(d domain.Document) bool {
		return d.ApprovalStatus == domain.StatusApproved && d.Version == 4
	}), 3, mock.MatchedBy(func(e domain.AuditLogEntry) bool {
		return e.Action == domain.ActionApproveDocument && e.ActorID == "A2" && e.ApprovalToken != ""
	})).Return(nil)

	got, err := svc.Execute(context.Background(), "d1", domain.ActionApproveDocument, partnerA2)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, got.ApprovalStatus)
	docs.AssertExpectations(t)
	audit.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestWorkflowService_ExecuteConflictSkipsAudit(t *testing.T) {
	docs := new(docRepoMock)
	audit := new(auditLogMock)
	svc := NewWorkflowService(testWorkflow(), docs, audit, &recordingLogger{}, nil)

	docs.On("GetByID", mock.Anything, "d1").Return(domain.Document{ID: "d1", ApprovalStatus: domain.StatusDraft, CreatorID: "A1", Version: 1}, nil)
	docs.On("Save", mock.Anything, mock.Anything, 1, mock.Anything).Return(domain.ErrConflict)

	_, err := svc.Execute(context.Background(), "d1", domain.ActionSubmitReview, juniorA1)
	assert.ErrorIs(t, err, domain.ErrConflict)
	audit.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestWorkflowService_ExecuteAuditFailureLeavesDocumentUnchanged(t *testing.T) {
	audit := new(auditLogMock)
	metrics := newRecorderMock()
	docs := memory.NewDocumentRepository(audit)
	svc := NewWorkflowService(testWorkflow(), docs, audit, &recordingLogger{}, metrics)
	ctx := context.Background()

	stored := domain.Document{ID: "d1", ApprovalStatus: domain.StatusReview, CreatorID: "A1", Version: 1}
	audit.On("Append", mock.Anything, mock.Anything).Return(nil).Once()
	require.NoError(t, docs.Create(ctx, stored, domain.AuditLogEntry{DocumentID: "d1", ActorID: "A1", Action: domain.ActionSubmitReview}))

	sinkDown := errors.New("audit sink down")
	audit.On("Append", mock.Anything, mock.Anything).Return(sinkDown)

	_, err := svc.Execute(ctx, "d1", domain.ActionApproveDocument, partnerA2)
	assert.ErrorIs(t, err, sinkDown)

	got, err := svc.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReview, got.ApprovalStatus)
	assert.Equal(t, 1, got.Version)
	assert.Zero(t, metrics.actions["approve_document:proceeded"])

	// The transition is still available once the audit sink recovers.
	audit.ExpectedCalls = nil
	audit.On("Append", mock.Anything, mock.Anything).Return(nil)
	approved, err := svc.Execute(ctx, "d1", domain.ActionApproveDocument, partnerA2)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.ApprovalStatus)
}

func TestWorkflowService_ExecuteNotFound(t *testing.T) {
	docs := new(docRepoMock)
	svc := NewWorkflowService(testWorkflow(), docs, new(auditLogMock), &recordingLogger{}, nil)
	docs.On("GetByID", mock.Anything, "missing").Return(domain.Document{}, domain.ErrNotFound)

	_, err := svc.Execute(context.Background(), "missing", domain.ActionSubmitReview, juniorA1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Execute(context.Background(), "", domain.ActionSubmitReview, juniorA1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestWorkflowService_DocumentHistory(t *testing.T) {
	audit := new(auditLogMock)
	svc := NewWorkflowService(testWorkflow(), new(docRepoMock), audit, &recordingLogger{}, nil)
	audit.On("ListByDocument", mock.Anything, "d1").Return([]domain.AuditLogEntry{{DocumentID: "d1"}}, nil)

	got, err := svc.DocumentHistory(context.Background(), "d1")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = svc.DocumentHistory(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestWorkflowService_ValidateTransitionDoesNotAudit(t *testing.T) {
	audit := new(auditLogMock)
	svc := NewWorkflowService(testWorkflow(), new(docRepoMock), audit, &recordingLogger{}, nil)

	res := svc.ValidateTransition(domain.Document{ID: "d", ApprovalStatus: domain.StatusReview, CreatorID: "A1"}, domain.ActionApproveDocument, partnerA2)
	assert.True(t, res.Allowed)
	audit.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}
