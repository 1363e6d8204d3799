package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alphaani/marks-management-api/internal/dto"
	"github.com/alphaani/marks-management-api/internal/models"
	"github.com/alphaani/marks-management-api/internal/repository"
	appErrors "github.com/alphaani/marks-management-api/pkg/errors"
)

type correctionRepoStub struct {
	mu       sync.Mutex
	requests map[string]*models.CorrectionRequest
	seq      int

	// markWriteErr forces ApproveAndResolve to fail after the status check,
	// simulating a storage failure while writing the mark.
	markWriteErr error
	marks        *markStoreStub
}

func newCorrectionRepoStub(marks *markStoreStub) *correctionRepoStub {
	return &correctionRepoStub{requests: make(map[string]*models.CorrectionRequest), marks: marks}
}

func (r *correctionRepoStub) Create(ctx context.Context, request *models.CorrectionRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if request.ID == "" {
		r.seq++
		request.ID = fmt.Sprintf("req-%d", r.seq)
	}
	copy := *request
	r.requests[request.ID] = &copy
	return nil
}

func (r *correctionRepoStub) GetByID(ctx context.Context, id string) (*models.CorrectionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *request
	return &copy, nil
}

func (r *correctionRepoStub) List(ctx context.Context, filter models.CorrectionFilter) ([]models.CorrectionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.CorrectionRequest
	for _, request := range r.requests {
		if filter.StudentID != "" && request.StudentID != filter.StudentID {
			continue
		}
		if len(filter.Statuses) > 0 {
			matched := false
			for _, status := range filter.Statuses {
				if request.Status == status {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		result = append(result, *request)
	}
	return result, nil
}

func (r *correctionRepoStub) ListPendingForTeacher(ctx context.Context, teacherUserID string) ([]models.CorrectionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.CorrectionRequest
	for _, request := range r.requests {
		if request.Status != models.CorrectionPending {
			continue
		}
		if request.TeacherID == teacherUserID {
			result = append(result, *request)
		}
	}
	return result, nil
}

func (r *correctionRepoStub) UpdateTeacherDecision(ctx context.Context, params repository.DecisionParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[params.ID]
	if !ok || request.Status != models.CorrectionPending {
		return sql.ErrNoRows
	}
	request.Status = params.Status
	request.TeacherDecisionAt = &params.DecidedAt
	request.TeacherComment = params.Comment
	return nil
}

func (r *correctionRepoStub) UpdateAdminReject(ctx context.Context, params repository.DecisionParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[params.ID]
	if !ok || request.Status.Terminal() {
		return sql.ErrNoRows
	}
	request.Status = params.Status
	request.AdminDecisionAt = &params.DecidedAt
	request.AdminComment = params.Comment
	return nil
}

func (r *correctionRepoStub) ApproveAndResolve(ctx context.Context, params repository.ApproveParams) (*models.Mark, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[params.Request.ID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	allowed := request.Status == models.CorrectionTeacherApproved ||
		(params.FromPending && request.Status == models.CorrectionPending)
	if !allowed {
		return nil, sql.ErrNoRows
	}
	if r.markWriteErr != nil {
		return nil, &repository.MarkWriteError{Err: r.markWriteErr}
	}

	now := params.DecidedAt
	var mark *models.Mark
	if request.MarkID != nil {
		existing := r.marks.marks[*request.MarkID]
		existing.Score = request.ProposedScore
		existing.RecordedAt = now
		copy := *existing
		mark = &copy
	} else {
		mark = &models.Mark{
			ID:         "mark-created",
			StudentID:  request.StudentID,
			SubjectID:  request.SubjectID,
			ExamID:     request.ExamID,
			Score:      request.ProposedScore,
			RecordedBy: &request.TeacherID,
			RecordedAt: now,
		}
		r.marks.marks[mark.ID] = mark
	}

	request.Status = models.CorrectionApproved
	request.AdminDecisionAt = &now
	request.AdminComment = params.Comment
	return mark, nil
}

func (r *correctionRepoStub) CountByStatus(ctx context.Context, filter models.CorrectionFilter) (map[models.CorrectionStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[models.CorrectionStatus]int)
	for _, request := range r.requests {
		if filter.StudentID != "" && request.StudentID != filter.StudentID {
			continue
		}
		if filter.TeacherID != "" && request.TeacherID != filter.TeacherID {
			continue
		}
		counts[request.Status]++
	}
	return counts, nil
}

type markStoreStub struct {
	marks map[string]*models.Mark
}

func newMarkStoreStub() *markStoreStub {
	return &markStoreStub{marks: make(map[string]*models.Mark)}
}

func (m *markStoreStub) GetByID(ctx context.Context, id string) (*models.Mark, error) {
	mark, ok := m.marks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *mark
	return &copy, nil
}

func (m *markStoreStub) GetByTriple(ctx context.Context, studentID, subjectID, examID string) (*models.Mark, error) {
	for _, mark := range m.marks {
		if mark.StudentID == studentID && mark.SubjectID == subjectID && mark.ExamID == examID {
			copy := *mark
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

type studentStoreStub struct {
	students map[string]*models.Student
}

func newStudentStoreStub() *studentStoreStub {
	return &studentStoreStub{students: make(map[string]*models.Student)}
}

func (s *studentStoreStub) GetByID(ctx context.Context, id string) (*models.Student, error) {
	student, ok := s.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

func (s *studentStoreStub) FindByUser(ctx context.Context, userID string) (*models.Student, error) {
	for _, student := range s.students {
		if student.UserID == userID {
			return student, nil
		}
	}
	return nil, sql.ErrNoRows
}

type teacherResolverStub struct {
	assignments map[string]string // classID/subjectID -> teacher user id
}

func (t *teacherResolverStub) FindTeacherUserForClassSubject(ctx context.Context, classID, subjectID string) (string, error) {
	userID, ok := t.assignments[classID+"/"+subjectID]
	if !ok {
		return "", sql.ErrNoRows
	}
	return userID, nil
}

type auditStub struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func (a *auditStub) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.logs)
}

type cacheStub struct {
	mu      sync.Mutex
	entries map[string]interface{}
	sets    int
	deletes int
}

func newCacheStub() *cacheStub {
	return &cacheStub{entries: make(map[string]interface{})}
}

func (c *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	stats, ok := value.(*models.CorrectionStatistics)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*dest.(*models.CorrectionStatistics) = *stats
	return nil
}

func (c *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.entries[key] = value
	return nil
}

func (c *cacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	c.entries = make(map[string]interface{})
	return nil
}

type correctionFixture struct {
	svc      *CorrectionService
	repo     *correctionRepoStub
	marks    *markStoreStub
	students *studentStoreStub
	teachers *teacherResolverStub
	audit    *auditStub
	cache    *cacheStub
}

func newCorrectionFixture(t *testing.T, opts ...CorrectionServiceOption) *correctionFixture {
	t.Helper()
	marks := newMarkStoreStub()
	repo := newCorrectionRepoStub(marks)
	students := newStudentStoreStub()
	teachers := &teacherResolverStub{assignments: make(map[string]string)}
	audit := &auditStub{}
	cache := newCacheStub()

	students.students["student-1"] = &models.Student{ID: "student-1", UserID: "user-student-1", ClassID: "class-10a"}
	teachers.assignments["class-10a/math"] = "user-teacher-1"
	marks.marks["mark-1"] = &models.Mark{
		ID:         "mark-1",
		StudentID:  "student-1",
		SubjectID:  "math",
		ExamID:     "midterm",
		Score:      78,
		RecordedBy: strPtr("user-teacher-1"),
	}

	allOpts := append([]CorrectionServiceOption{WithStatsCache(cache, time.Minute)}, opts...)
	svc := NewCorrectionService(repo, marks, students, teachers, audit, nil, nil, allOpts...)
	return &correctionFixture{svc: svc, repo: repo, marks: marks, students: students, teachers: teachers, audit: audit, cache: cache}
}

func strPtr(s string) *string { return &s }

func studentClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-student-1", Role: models.RoleStudent}
}

func teacherClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-teacher-1", Role: models.RoleTeacher}
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-admin-1", Role: models.RoleAdmin}
}

func submitRequest(t *testing.T, f *correctionFixture) *models.CorrectionRequest {
	t.Helper()
	request, err := f.svc.Submit(context.Background(), dto.SubmitCorrectionRequest{
		SubjectID:     "math",
		ExamID:        "midterm",
		ProposedScore: 95,
		Reason:        "второй вопрос был оценен неверно",
	}, studentClaims())
	require.NoError(t, err)
	return request
}

func TestSubmitSnapshotsOriginalScoreAndResolvesTeacher(t *testing.T) {
	f := newCorrectionFixture(t)
	request := submitRequest(t, f)

	require.Equal(t, models.CorrectionPending, request.Status)
	require.Equal(t, 78, request.OriginalScore)
	require.Equal(t, 95, request.ProposedScore)
	require.NotNil(t, request.MarkID)
	require.Equal(t, "mark-1", *request.MarkID)
	require.Equal(t, "user-teacher-1", request.TeacherID)
	require.Equal(t, 1, f.audit.count())
}

func TestSubmitWithoutMarkLeavesMarkIDEmpty(t *testing.T) {
	f := newCorrectionFixture(t)
	request, err := f.svc.Submit(context.Background(), dto.SubmitCorrectionRequest{
		SubjectID:     "math",
		ExamID:        "final",
		ProposedScore: 88,
		Reason:        "mark was never entered",
	}, studentClaims())
	require.NoError(t, err)
	require.Nil(t, request.MarkID)
	require.Equal(t, 0, request.OriginalScore)
}

func TestSubmitFailsWithoutTeacherAssignment(t *testing.T) {
	f := newCorrectionFixture(t)
	_, err := f.svc.Submit(context.Background(), dto.SubmitCorrectionRequest{
		SubjectID:     "history",
		ExamID:        "midterm",
		ProposedScore: 80,
		Reason:        "wrong total",
	}, studentClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNoTeacherAssigned.Code, appErrors.FromError(err).Code)
}

func TestSubmitRejectsOutOfRangeScore(t *testing.T) {
	f := newCorrectionFixture(t)
	_, err := f.svc.Submit(context.Background(), dto.SubmitCorrectionRequest{
		SubjectID:     "math",
		ExamID:        "midterm",
		ProposedScore: 101,
		Reason:        "typo",
	}, studentClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmitRejectsNonStudent(t *testing.T) {
	f := newCorrectionFixture(t)
	_, err := f.svc.Submit(context.Background(), dto.SubmitCorrectionRequest{
		SubjectID:     "math",
		ExamID:        "midterm",
		ProposedScore: 95,
		Reason:        "typo",
	}, teacherClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestFullApprovalFlowWritesMark(t *testing.T) {
	f := newCorrectionFixture(t)
	request := submitRequest(t, f)

	approved, err := f.svc.TeacherApprove(context.Background(), request.ID, dto.DecisionRequest{Comment: "verified"}, teacherClaims())
	require.NoError(t, err)
	require.Equal(t, models.CorrectionTeacherApproved, approved.Status)
	require.NotNil(t, approved.TeacherDecisionAt)

	final, mark, err := f.svc.AdminApprove(context.Background(), request.ID, dto.DecisionRequest{}, adminClaims())
	require.NoError(t, err)
	require.Equal(t, models.CorrectionApproved, final.Status)
	require.NotNil(t, final.AdminDecisionAt)
	require.Equal(t, 95, mark.Score)
	require.Equal(t, 95, f.marks.marks["mark-1"].Score)
}

func TestAdminApproveCreatesMarkWhenMissing(t *testing.T) {
	f := newCorrectionFixture(t)
	request, err := f.svc.Submit(context.Background(), dto.SubmitCorrectionRequest{
		SubjectID:     "math",
		ExamID:        "final",
		ProposedScore: 88,
		Reason:        "mark was never entered",
	}, studentClaims())
	require.NoError(t, err)

	_, err = f.svc.TeacherApprove(context.Background(), request.ID, dto.DecisionRequest{}, teacherClaims())
	require.NoError(t, err)

	final, mark, err := f.svc.AdminApprove(context.Background(), request.ID, dto.DecisionRequest{}, adminClaims())
	require.NoError(t, err)
	require.Equal(t, 88, mark.Score)
	require.Equal(t, "user-teacher-1", *mark.RecordedBy)
	require.NotNil(t, final.MarkID)
}

func TestTeacherRejectRequiresComment(t *testing.T) {
	f := newCorrectionFixture(t)
	request := submitRequest(t, f)

	_, err := f.svc.TeacherReject(context.Background(), request.ID, dto.DecisionRequest{}, teacherClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	rejected, err := f.svc.TeacherReject(context.Background(), request.ID, dto.DecisionRequest{Comment: "original mark is correct"}, teacherClaims())
	require.NoError(t, err)
	require.Equal(t, models.CorrectionRejected, rejected.Status)
}

func TestTerminalRequestRefusesFurtherDecisions(t *testing.T) {
	f := newCorrectionFixture(t)
	request := submitRequest(t, f)

	_, err := f.svc.TeacherReject(context.Background(), request.ID, dto.DecisionRequest{Comment: "no grounds"}, teacherClaims())
	require.NoError(t, err)

	_, _, err = f.svc.AdminApprove(context.Background(), request.ID, dto.DecisionRequest{}, adminClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)

	// the mark is untouched
	require.Equal(t, 78, f.marks.marks["mark-1"].Score)
}

func TestAdminApproveRequiresTeacherApproval(t *testing.T) {
	f := newCorrectionFixture(t)
	request := submitRequest(t, f)

	_, _, err := f.svc.AdminApprove(context.Background(), request.ID, dto.DecisionRequest{}, adminClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestAdminOverrideApproveFromPending(t *testing.T) {
	f := newCorrectionFixture(t, WithAdminOverride(true))
	request := submitRequest(t, f)

	final, mark, err := f.svc.AdminOverrideApprove(context.Background(), request.ID, dto.DecisionRequest{Comment: "escalated"}, adminClaims())
	require.NoError(t, err)
	require.Equal(t, models.CorrectionApproved, final.Status)
	require.Equal(t, 95, mark.Score)
}

func TestAdminOverrideDisabledByDefault(t *testing.T) {
	f := newCorrectionFixture(t)
	request := submitRequest(t, f)

	_, _, err := f.svc.AdminOverrideApprove(context.Background(), request.ID, dto.DecisionRequest{}, adminClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAdminApproveMarkWriteFailureKeepsRequestReviewable(t *testing.T) {
	f := newCorrectionFixture(t)
	request := submitRequest(t, f)

	_, err := f.svc.TeacherApprove(context.Background(), request.ID, dto.DecisionRequest{}, teacherClaims())
	require.NoError(t, err)

	f.repo.markWriteErr = errors.New("disk full")
	_, _, err = f.svc.AdminApprove(context.Background(), request.ID, dto.DecisionRequest{}, adminClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrMarkWriteFailed.Code, appErrors.FromError(err).Code)

	// still teacher_approved, retry succeeds once storage recovers
	f.repo.markWriteErr = nil
	final, mark, err := f.svc.AdminApprove(context.Background(), request.ID, dto.DecisionRequest{}, adminClaims())
	require.NoError(t, err)
	require.Equal(t, models.CorrectionApproved, final.Status)
	require.Equal(t, 95, mark.Score)
}

func TestConcurrentTeacherDecisionsExactlyOneWins(t *testing.T) {
	f := newCorrectionFixture(t)
	request := submitRequest(t, f)

	var wg sync.WaitGroup
	results := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, results[0] = f.svc.TeacherApprove(context.Background(), request.ID, dto.DecisionRequest{}, teacherClaims())
	}()
	go func() {
		defer wg.Done()
		_, results[1] = f.svc.TeacherReject(context.Background(), request.ID, dto.DecisionRequest{Comment: "no"}, teacherClaims())
	}()
	wg.Wait()

	var failures int
	for _, err := range results {
		if err != nil {
			require.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
			failures++
		}
	}
	require.Equal(t, 1, failures)

	stored, err := f.repo.GetByID(context.Background(), request.ID)
	require.NoError(t, err)
	require.True(t, stored.Status == models.CorrectionTeacherApproved || stored.Status == models.CorrectionRejected)
}

func TestTeacherScopeOnReviewQueue(t *testing.T) {
	f := newCorrectionFixture(t)
	request := submitRequest(t, f)

	other := &models.JWTClaims{UserID: "user-teacher-2", Role: models.RoleTeacher}
	_, err := f.svc.TeacherApprove(context.Background(), request.ID, dto.DecisionRequest{}, other)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	queue, err := f.svc.PendingForTeacher(context.Background(), teacherClaims())
	require.NoError(t, err)
	require.Len(t, queue, 1)

	empty, err := f.svc.PendingForTeacher(context.Background(), other)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestPendingForAdminListsBothReviewableStates(t *testing.T) {
	f := newCorrectionFixture(t)
	first := submitRequest(t, f)
	_, err := f.svc.TeacherApprove(context.Background(), first.ID, dto.DecisionRequest{}, teacherClaims())
	require.NoError(t, err)

	second, err := f.svc.Submit(context.Background(), dto.SubmitCorrectionRequest{
		SubjectID:     "math",
		ExamID:        "final",
		ProposedScore: 88,
		Reason:        "mark was never entered",
	}, studentClaims())
	require.NoError(t, err)
	require.Equal(t, models.CorrectionPending, second.Status)

	queue, err := f.svc.PendingForAdmin(context.Background(), adminClaims())
	require.NoError(t, err)
	require.Len(t, queue, 2)

	_, err = f.svc.PendingForAdmin(context.Background(), teacherClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestHistoryForStudentSelfOnly(t *testing.T) {
	f := newCorrectionFixture(t)
	submitRequest(t, f)

	history, err := f.svc.HistoryForStudent(context.Background(), "", studentClaims())
	require.NoError(t, err)
	require.Len(t, history, 1)

	_, err = f.svc.HistoryForStudent(context.Background(), "student-2", studentClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestStatisticsSumAndCaching(t *testing.T) {
	f := newCorrectionFixture(t)
	request := submitRequest(t, f)
	_, err := f.svc.TeacherApprove(context.Background(), request.ID, dto.DecisionRequest{}, teacherClaims())
	require.NoError(t, err)

	stats, err := f.svc.Statistics(context.Background(), adminClaims())
	require.NoError(t, err)
	require.Equal(t, stats.Total, stats.Pending+stats.TeacherApproved+stats.Approved+stats.Rejected)
	require.Equal(t, 1, stats.TeacherApproved)
	require.Equal(t, 1, f.cache.sets)

	// second read is served from cache
	again, err := f.svc.Statistics(context.Background(), adminClaims())
	require.NoError(t, err)
	require.Equal(t, stats.Total, again.Total)
	require.Equal(t, 1, f.cache.sets)

	// a transition invalidates the cached counters
	_, _, err = f.svc.AdminApprove(context.Background(), request.ID, dto.DecisionRequest{}, adminClaims())
	require.NoError(t, err)
	fresh, err := f.svc.Statistics(context.Background(), adminClaims())
	require.NoError(t, err)
	require.Equal(t, 1, fresh.Approved)
	require.Equal(t, 2, f.cache.sets)
}
