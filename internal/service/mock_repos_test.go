package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/drilonhametaj25/insegnami-sub002/internal/model"
	"github.com/drilonhametaj25/insegnami-sub002/internal/notifier"
	"github.com/drilonhametaj25/insegnami-sub002/internal/repository"
)

// ── Mock TeacherRepository ──

type mockTeacherRepo struct {
	teachers map[string]*model.Teacher
}

func newMockTeacherRepo() *mockTeacherRepo {
	return &mockTeacherRepo{teachers: make(map[string]*model.Teacher)}
}

func (m *mockTeacherRepo) GetByID(_ context.Context, id string) (*model.Teacher, error) {
	if t, ok := m.teachers[id]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock StudentRepository ──

type mockStudentRepo struct {
	students map[string]*model.Student
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{students: make(map[string]*model.Student)}
}

func (m *mockStudentRepo) GetByID(_ context.Context, id string) (*model.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock CourseRepository ──

type mockCourseRepo struct {
	courses map[string]*model.Course
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[string]*model.Course)}
}

func (m *mockCourseRepo) GetByID(_ context.Context, id string) (*model.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock ClassRepository ──

type mockClassRepo struct {
	classes map[string]*model.Class
}

func newMockClassRepo() *mockClassRepo {
	return &mockClassRepo{classes: make(map[string]*model.Class)}
}

func (m *mockClassRepo) GetByID(_ context.Context, id string) (*model.Class, error) {
	if c, ok := m.classes[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock EnrollmentRepository ──

type mockEnrollmentRepo struct {
	// key: classID + "/" + studentID
	enrollments map[string]bool
	students    map[string]*model.Student
}

func newMockEnrollmentRepo() *mockEnrollmentRepo {
	return &mockEnrollmentRepo{
		enrollments: make(map[string]bool),
		students:    make(map[string]*model.Student),
	}
}

func (m *mockEnrollmentRepo) enroll(classID string, student *model.Student) {
	m.enrollments[classID+"/"+student.StudentID] = true
	m.students[student.StudentID] = student
}

func (m *mockEnrollmentRepo) Exists(_ context.Context, classID, studentID string) (bool, error) {
	return m.enrollments[classID+"/"+studentID], nil
}

func (m *mockEnrollmentRepo) ListStudentsByClass(_ context.Context, classID string) ([]model.Student, error) {
	var result []model.Student
	for sid, s := range m.students {
		if m.enrollments[classID+"/"+sid] {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// ── Mock LessonTemplateRepository ──

type mockLessonTemplateRepo struct {
	templates map[string]*model.LessonTemplate
	deleted   map[string]bool
}

func newMockLessonTemplateRepo() *mockLessonTemplateRepo {
	return &mockLessonTemplateRepo{
		templates: make(map[string]*model.LessonTemplate),
		deleted:   make(map[string]bool),
	}
}

func (m *mockLessonTemplateRepo) GetByID(_ context.Context, id string) (*model.LessonTemplate, error) {
	if m.deleted[id] {
		return nil, gorm.ErrRecordNotFound
	}
	if t, ok := m.templates[id]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLessonTemplateRepo) SoftDelete(_ context.Context, id, _ string) error {
	if _, ok := m.templates[id]; !ok || m.deleted[id] {
		return gorm.ErrRecordNotFound
	}
	m.deleted[id] = true
	return nil
}

// ── Mock LessonOccurrenceRepository ──
//
// 与真实实现保持同一契约：CreateSeriesChecked / UpdateChecked 先把该教师
// 全部未取消课节交给 check 回调，回调通过才落库。mu 串行化模拟事务边界。

type mockLessonOccurrenceRepo struct {
	mu          sync.Mutex
	occurrences map[string]*model.LessonOccurrence
	templates   *mockLessonTemplateRepo
	nextID      int
}

func newMockLessonOccurrenceRepo(templates *mockLessonTemplateRepo) *mockLessonOccurrenceRepo {
	return &mockLessonOccurrenceRepo{
		occurrences: make(map[string]*model.LessonOccurrence),
		templates:   templates,
	}
}

func (m *mockLessonOccurrenceRepo) teacherOccurrences(teacherID string) []model.LessonOccurrence {
	var existing []model.LessonOccurrence
	for _, occ := range m.occurrences {
		if occ.TeacherID == teacherID && occ.Status != model.OccurrenceStatusCancelled {
			existing = append(existing, *occ)
		}
	}
	sort.Slice(existing, func(i, j int) bool { return existing[i].StartsAt.Before(existing[j].StartsAt) })
	return existing
}

func (m *mockLessonOccurrenceRepo) CreateSeriesChecked(_ context.Context, tpl *model.LessonTemplate, occs []model.LessonOccurrence,
	check func(existing []model.LessonOccurrence) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := check(m.teacherOccurrences(tpl.TeacherID)); err != nil {
		return err
	}

	if tpl.TemplateID == "" {
		m.nextID++
		tpl.TemplateID = fmt.Sprintf("tpl-%d", m.nextID)
	}
	m.templates.templates[tpl.TemplateID] = tpl

	for i := range occs {
		m.nextID++
		occs[i].OccurrenceID = fmt.Sprintf("occ-%d", m.nextID)
		occs[i].TemplateID = &tpl.TemplateID
		stored := occs[i]
		m.occurrences[stored.OccurrenceID] = &stored
	}
	return nil
}

func (m *mockLessonOccurrenceRepo) GetByID(_ context.Context, id string) (*model.LessonOccurrence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if occ, ok := m.occurrences[id]; ok {
		copied := *occ
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLessonOccurrenceRepo) List(_ context.Context, filter repository.OccurrenceFilter, offset, limit int) ([]model.LessonOccurrence, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []model.LessonOccurrence
	for _, occ := range m.occurrences {
		if filter.TeacherID != "" && occ.TeacherID != filter.TeacherID {
			continue
		}
		if filter.ClassID != "" && occ.ClassID != filter.ClassID {
			continue
		}
		if filter.From != nil && occ.StartsAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !occ.StartsAt.Before(*filter.To) {
			continue
		}
		matched = append(matched, *occ)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].StartsAt.Before(matched[j].StartsAt) })

	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (m *mockLessonOccurrenceRepo) ListByTemplate(_ context.Context, templateID string) ([]model.LessonOccurrence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []model.LessonOccurrence
	for _, occ := range m.occurrences {
		if occ.TemplateID != nil && *occ.TemplateID == templateID {
			result = append(result, *occ)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartsAt.Before(result[j].StartsAt) })
	return result, nil
}

func (m *mockLessonOccurrenceRepo) ListByTeacherInRange(_ context.Context, teacherID string, from, to time.Time) ([]model.LessonOccurrence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []model.LessonOccurrence
	for _, occ := range m.occurrences {
		if occ.TeacherID != teacherID {
			continue
		}
		if occ.StartsAt.Before(from) || !occ.StartsAt.Before(to) {
			continue
		}
		result = append(result, *occ)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartsAt.Before(result[j].StartsAt) })
	return result, nil
}

func (m *mockLessonOccurrenceRepo) UpdateChecked(_ context.Context, occ *model.LessonOccurrence,
	check func(existing []model.LessonOccurrence) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.occurrences[occ.OccurrenceID]; !ok {
		return gorm.ErrRecordNotFound
	}
	if err := check(m.teacherOccurrences(occ.TeacherID)); err != nil {
		return err
	}

	occ.Version++
	stored := *occ
	m.occurrences[occ.OccurrenceID] = &stored
	return nil
}

// ── Mock AttendanceRepository ──
//
// UpsertWithDeduction 在同一把锁内完成 upsert 与 FIFO 扣减，
// 复刻真实实现的事务语义：重复登记覆盖旧记录，但每次都再扣一次。

type mockAttendanceRepo struct {
	mu       sync.Mutex
	records  map[string]*model.AttendanceRecord // key: occurrenceID + "/" + studentID
	packages *mockHoursPackageRepo
	nextID   int
}

func newMockAttendanceRepo(packages *mockHoursPackageRepo) *mockAttendanceRepo {
	return &mockAttendanceRepo{
		records:  make(map[string]*model.AttendanceRecord),
		packages: packages,
	}
}

func (m *mockAttendanceRepo) UpsertWithDeduction(_ context.Context, rec *model.AttendanceRecord, courseID string, deductHours float64) (*model.HoursPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := rec.OccurrenceID + "/" + rec.StudentID
	if existing, ok := m.records[key]; ok {
		existing.Status = rec.Status
		existing.HoursAttended = rec.HoursAttended
		existing.Notes = rec.Notes
		existing.UpdatedBy = rec.UpdatedBy
		existing.UpdatedAt = time.Now()
		*rec = *existing
	} else {
		m.nextID++
		rec.AttendanceID = fmt.Sprintf("att-%d", m.nextID)
		rec.CreatedAt = time.Now()
		rec.UpdatedAt = rec.CreatedAt
		stored := *rec
		m.records[key] = &stored
	}

	if deductHours <= 0 {
		return nil, nil
	}

	pkg := m.packages.oldestActive(rec.StudentID, courseID, time.Now())
	if pkg == nil {
		return nil, nil
	}

	// 与真实仓储一致：余额按 numeric(6,2) 精度取整后再判扣空
	remaining := math.Round((pkg.RemainingHours-deductHours)*100) / 100
	if remaining < 0 {
		remaining = 0
	}
	pkg.RemainingHours = remaining
	if remaining == 0 {
		pkg.IsActive = false
	}
	pkg.Version++

	copied := *pkg
	return &copied, nil
}

func (m *mockAttendanceRepo) GetByOccurrenceAndStudent(_ context.Context, occurrenceID, studentID string) (*model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[occurrenceID+"/"+studentID]; ok {
		copied := *rec
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) ListByOccurrence(_ context.Context, occurrenceID string) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []model.AttendanceRecord
	for _, rec := range m.records {
		if rec.OccurrenceID == occurrenceID {
			result = append(result, *rec)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AttendanceID < result[j].AttendanceID })
	return result, nil
}

func (m *mockAttendanceRepo) ListByStudent(_ context.Context, studentID string, offset, limit int) ([]model.AttendanceRecord, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []model.AttendanceRecord
	for _, rec := range m.records {
		if rec.StudentID == studentID {
			matched = append(matched, *rec)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (m *mockAttendanceRepo) ListByClassInRange(_ context.Context, classID string, from, to time.Time) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []model.AttendanceRecord
	for _, rec := range m.records {
		if rec.Occurrence == nil || rec.Occurrence.ClassID != classID {
			continue
		}
		if rec.Occurrence.StartsAt.Before(from) || !rec.Occurrence.StartsAt.Before(to) {
			continue
		}
		result = append(result, *rec)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Occurrence.StartsAt.Before(result[j].Occurrence.StartsAt)
	})
	return result, nil
}

// ── Mock HoursPackageRepository ──

type mockHoursPackageRepo struct {
	mu       sync.Mutex
	packages map[string]*model.HoursPackage
	nextID   int
}

func newMockHoursPackageRepo() *mockHoursPackageRepo {
	return &mockHoursPackageRepo{packages: make(map[string]*model.HoursPackage)}
}

// oldestActive FIFO 选包：最早购买、激活、未过期。调用方负责持锁
func (m *mockHoursPackageRepo) oldestActive(studentID, courseID string, at time.Time) *model.HoursPackage {
	var candidate *model.HoursPackage
	for _, pkg := range m.packages {
		if pkg.StudentID != studentID || pkg.CourseID != courseID || !pkg.IsActive {
			continue
		}
		if pkg.ExpiryDate != nil && !pkg.ExpiryDate.After(at) {
			continue
		}
		if candidate == nil || pkg.PurchaseDate.Before(candidate.PurchaseDate) {
			candidate = pkg
		}
	}
	return candidate
}

func (m *mockHoursPackageRepo) Create(_ context.Context, pkg *model.HoursPackage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pkg.PackageID == "" {
		m.nextID++
		pkg.PackageID = fmt.Sprintf("pkg-%d", m.nextID)
	}
	stored := *pkg
	m.packages[pkg.PackageID] = &stored
	return nil
}

func (m *mockHoursPackageRepo) GetByID(_ context.Context, id string) (*model.HoursPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pkg, ok := m.packages[id]; ok {
		copied := *pkg
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockHoursPackageRepo) ListByStudent(_ context.Context, studentID string) ([]model.HoursPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []model.HoursPackage
	for _, pkg := range m.packages {
		if pkg.StudentID == studentID {
			result = append(result, *pkg)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PurchaseDate.Before(result[j].PurchaseDate) })
	return result, nil
}

func (m *mockHoursPackageRepo) OldestActive(_ context.Context, studentID, courseID string, at time.Time) (*model.HoursPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pkg := m.oldestActive(studentID, courseID, at); pkg != nil {
		copied := *pkg
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockHoursPackageRepo) AdjustBalance(_ context.Context, id string, delta float64, updatedBy string) (*model.HoursPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pkg, ok := m.packages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}

	remaining := math.Round((pkg.RemainingHours+delta)*100) / 100
	if remaining < 0 {
		remaining = 0
	}
	if remaining > pkg.TotalHours {
		remaining = pkg.TotalHours
	}
	pkg.RemainingHours = remaining
	pkg.IsActive = remaining > 0
	pkg.UpdatedBy = &updatedBy
	pkg.Version++

	copied := *pkg
	return &copied, nil
}

// ── Mock Notifier ──

type mockNotifier struct {
	mu     sync.Mutex
	events []notifier.LowBalanceEvent
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{}
}

func (m *mockNotifier) NotifyLowBalance(_ context.Context, event notifier.LowBalanceEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockNotifier) eventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// ── 测试夹具 ──

type serviceFixture struct {
	repo        *repository.Repository
	teachers    *mockTeacherRepo
	students    *mockStudentRepo
	courses     *mockCourseRepo
	classes     *mockClassRepo
	enrollments *mockEnrollmentRepo
	templates   *mockLessonTemplateRepo
	occurrences *mockLessonOccurrenceRepo
	packages    *mockHoursPackageRepo
	attendance  *mockAttendanceRepo
	notifier    *mockNotifier
}

func newServiceFixture() *serviceFixture {
	teachers := newMockTeacherRepo()
	students := newMockStudentRepo()
	courses := newMockCourseRepo()
	classes := newMockClassRepo()
	enrollments := newMockEnrollmentRepo()
	templates := newMockLessonTemplateRepo()
	occurrences := newMockLessonOccurrenceRepo(templates)
	packages := newMockHoursPackageRepo()
	attendance := newMockAttendanceRepo(packages)

	return &serviceFixture{
		repo: &repository.Repository{
			Teacher:          teachers,
			Student:          students,
			Course:           courses,
			Class:            classes,
			Enrollment:       enrollments,
			LessonTemplate:   templates,
			LessonOccurrence: occurrences,
			Attendance:       attendance,
			HoursPackage:     packages,
		},
		teachers:    teachers,
		students:    students,
		courses:     courses,
		classes:     classes,
		enrollments: enrollments,
		templates:   templates,
		occurrences: occurrences,
		packages:    packages,
		attendance:  attendance,
		notifier:    newMockNotifier(),
	}
}
