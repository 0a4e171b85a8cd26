package booking

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Lingges1210/tutorlink-sub001/internal/db"
	"github.com/Lingges1210/tutorlink-sub001/internal/mailer"
	"github.com/Lingges1210/tutorlink-sub001/internal/model"
	"github.com/Lingges1210/tutorlink-sub001/internal/notification"
	"github.com/Lingges1210/tutorlink-sub001/internal/store"
)

// Monday 19 October 2026, 08:00 UTC.
var monday8 = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2026, 10, 19, hour, minute, 0, 0, time.UTC)
}

type recorder struct {
	mu      sync.Mutex
	notices []notification.Notice
}

func (r *recorder) Notify(n notification.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) kinds(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.notices {
		if n.UserID == userID {
			out = append(out, n.Kind)
		}
	}
	return out
}

type fakeMailer struct {
	mu        sync.Mutex
	next      int
	scheduled map[string]time.Time
	cancelled []string
	invites   []mailer.Invite
}

func (m *fakeMailer) Schedule(_ context.Context, _ mailer.Message, at time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	handle := fmt.Sprintf("em-%d", m.next)
	m.scheduled[handle] = at
	return handle, nil
}

func (m *fakeMailer) Cancel(_ context.Context, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, handle)
	return nil
}

func (m *fakeMailer) SendInvite(_ context.Context, inv mailer.Invite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invites = append(m.invites, inv)
	return nil
}

type fixture struct {
	ctx     context.Context
	gdb     *gorm.DB
	st      store.Store
	now     time.Time
	notices *recorder
	mail    *fakeMailer
	svc     *Service
	alloc   *Allocator
	sweeper *Sweeper
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb, err := db.OpenMemory(uuid.NewString())
	require.NoError(t, err)

	f := &fixture{
		ctx:     context.Background(),
		gdb:     gdb,
		st:      store.NewGormStore(gdb),
		now:     monday8,
		notices: &recorder{},
		mail:    &fakeMailer{scheduled: map[string]time.Time{}},
	}
	clock := WithClock(func() time.Time { return f.now })
	cfg := DefaultConfig()
	f.svc = NewService(f.st, f.notices, f.mail, cfg, clock)
	f.alloc = NewAllocator(f.st, f.notices, cfg, clock, WithRand(rand.New(rand.NewPCG(1, 2))))
	f.sweeper = NewSweeper(f.st, f.notices, cfg, clock)

	require.NoError(t, gdb.Create(&model.Subject{ID: "math", Code: "MATH101", Title: "Calculus"}).Error)
	require.NoError(t, gdb.Create(&model.Subject{ID: "phys", Code: "PHYS101", Title: "Mechanics"}).Error)
	for _, id := range []string{"alice", "bob"} {
		f.user(t, model.User{ID: id, Email: id + "@campus.edu"})
	}
	f.tutor(t, "tina", "math")
	f.availability(t, "tina", "08:00", "20:00")
	return f
}

func (f *fixture) user(t *testing.T, u model.User) {
	t.Helper()
	if u.Role == "" {
		u.Role = model.RoleStudent
	}
	if u.TutorStatus == "" {
		u.TutorStatus = model.TutorStatusNone
	}
	require.NoError(t, f.gdb.Create(&u).Error)
}

func (f *fixture) tutor(t *testing.T, id string, subjects ...string) {
	t.Helper()
	f.user(t, model.User{
		ID: id, Email: id + "@campus.edu",
		Role: model.RoleTutor, TutorStatus: model.TutorStatusApproved, IsVerified: true,
	})
	require.NoError(t, f.st.SetTutorSubjects(f.ctx, id, subjects))
}

// availability stores a document with the same slot on every day.
func (f *fixture) availability(t *testing.T, tutorID, from, to string) {
	t.Helper()
	days := make([]string, 7)
	for i, name := range []string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"} {
		days[i] = fmt.Sprintf(`{"day":%q,"off":false,"slots":[{"start":%q,"end":%q}]}`, name, from, to)
	}
	f.now = f.now.Add(time.Second)
	require.NoError(t, f.st.SaveAvailability(f.ctx, &model.Availability{
		TutorID:   tutorID,
		Days:      datatypes.JSON("[" + strings.Join(days, ",") + "]"),
		CreatedAt: f.now,
	}))
}

func (f *fixture) create(t *testing.T, studentID, tutorID string, start time.Time, minutes int) *model.Session {
	t.Helper()
	sess, err := f.svc.Create(f.ctx, CreateInput{
		StudentID: studentID, TutorID: tutorID, SubjectID: "math",
		ScheduledAt: start, DurationMin: minutes,
	})
	require.NoError(t, err)
	return sess
}

func (f *fixture) accepted(t *testing.T, studentID string, start time.Time, minutes int) *model.Session {
	t.Helper()
	sess := f.create(t, studentID, "tina", start, minutes)
	sess, err := f.svc.Accept(f.ctx, "tina", sess.ID)
	require.NoError(t, err)
	return sess
}

func (f *fixture) session(t *testing.T, id string) *model.Session {
	t.Helper()
	sess, err := f.st.GetSession(f.ctx, id)
	require.NoError(t, err)
	return sess
}

func (f *fixture) channel(t *testing.T, sessionID string) *model.ChatChannel {
	t.Helper()
	var ch model.ChatChannel
	require.NoError(t, f.gdb.First(&ch, "session_id = ?", sessionID).Error)
	return &ch
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "unexpected error: %v", err)
}
