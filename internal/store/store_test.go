package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Lingges1210/tutorlink-sub001/internal/db"
	"github.com/Lingges1210/tutorlink-sub001/internal/model"
)

// newTestDB opens a private in-memory SQLite database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenMemory(uuid.NewString())
	require.NoError(t, err)
	return gdb
}

// newMockDB wires gorm to sqlmock for checking the SQL shape of writes.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

var base = time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func seedSession(t *testing.T, gdb *gorm.DB, studentID string, tutorID *string, start time.Time, minutes int, status model.SessionStatus) *model.Session {
	t.Helper()
	end := start.Add(time.Duration(minutes) * time.Minute)
	s := &model.Session{
		ID:          uuid.NewString(),
		StudentID:   studentID,
		TutorID:     tutorID,
		SubjectID:   "subj",
		ScheduledAt: start,
		DurationMin: minutes,
		EndsAt:      &end,
		Status:      status,
		CalendarUID: uuid.NewString(),
	}
	require.NoError(t, gdb.Create(s).Error)
	return s
}

func TestGormStore_ActiveBookings(t *testing.T) {
	gdb := newTestDB(t)
	st := NewGormStore(gdb)
	ctx := context.Background()

	tutor := strPtr("tutor-1")
	seedSession(t, gdb, "alice", nil, base, 60, model.StatusPending)
	seedSession(t, gdb, "bob", tutor, base.Add(2*time.Hour), 60, model.StatusAccepted)
	seedSession(t, gdb, "alice", nil, base.Add(4*time.Hour), 60, model.StatusCancelled)
	legacy := seedSession(t, gdb, "alice", nil, base.Add(-48*time.Hour), 60, model.StatusAccepted)
	require.NoError(t, gdb.Model(&model.Session{}).Where("id = ?", legacy.ID).Update("ends_at", nil).Error)

	t.Run("student side includes legacy open-ended rows", func(t *testing.T) {
		got, err := st.ActiveBookings(ctx, "alice", base.Add(30*time.Minute), base.Add(90*time.Minute), "")
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("cancelled rows are not returned", func(t *testing.T) {
		got, err := st.ActiveBookings(ctx, "alice", base.Add(4*time.Hour), base.Add(5*time.Hour), legacy.ID)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("tutor side", func(t *testing.T) {
		got, err := st.ActiveBookings(ctx, "tutor-1", base.Add(150*time.Minute), base.Add(200*time.Minute), "")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, model.StatusAccepted, got[0].Status)
	})

	t.Run("touching windows are not candidates", func(t *testing.T) {
		got, err := st.ActiveBookings(ctx, "bob", base.Add(3*time.Hour), base.Add(4*time.Hour), "")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestGormStore_UpdateSessionIf(t *testing.T) {
	gdb := newTestDB(t)
	st := NewGormStore(gdb)
	ctx := context.Background()

	s := seedSession(t, gdb, "alice", strPtr("tutor-1"), base, 60, model.StatusAccepted)

	ok, err := st.UpdateSessionIf(ctx, s.ID,
		Guard{Statuses: []model.SessionStatus{model.StatusAccepted}},
		map[string]any{"status": model.StatusCompleted})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.UpdateSessionIf(ctx, s.ID,
		Guard{Statuses: []model.SessionStatus{model.StatusAccepted}},
		map[string]any{"status": model.StatusCompleted})
	require.NoError(t, err)
	assert.False(t, ok, "second write must lose the race")

	got, err := st.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
}

func TestGormStore_UpdateSessionIf_SQLShape(t *testing.T) {
	gormDB, mock := newMockDB(t)
	st := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "sessions" SET .* WHERE id = \$\d+ AND status IN \(\$\d+\) AND tutor_id IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err := st.UpdateSessionIf(context.Background(), "s-1",
		Guard{Statuses: []model.SessionStatus{model.StatusPending}, Unassigned: true},
		map[string]any{"tutor_id": "tutor-9"})
	require.NoError(t, err)
	assert.False(t, ok, "zero rows affected is a lost race, not an error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_AssignTutor(t *testing.T) {
	gdb := newTestDB(t)
	st := NewGormStore(gdb)
	ctx := context.Background()

	s := seedSession(t, gdb, "alice", nil, base, 60, model.StatusPending)

	ok, err := st.AssignTutor(ctx, s.ID, "tutor-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.AssignTutor(ctx, s.ID, "tutor-2")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := st.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "tutor-1", *got.TutorID)
}

func TestGormStore_OverdueAccepted(t *testing.T) {
	gdb := newTestDB(t)
	st := NewGormStore(gdb)
	ctx := context.Background()

	done := seedSession(t, gdb, "alice", strPtr("t"), base, 60, model.StatusAccepted)
	seedSession(t, gdb, "alice", strPtr("t"), base.Add(2*time.Hour), 60, model.StatusAccepted)
	seedSession(t, gdb, "bob", strPtr("t"), base, 60, model.StatusPending)
	legacy := seedSession(t, gdb, "carol", strPtr("t"), base, 30, model.StatusAccepted)
	require.NoError(t, gdb.Model(&model.Session{}).Where("id = ?", legacy.ID).Update("ends_at", nil).Error)

	got, err := st.OverdueAccepted(ctx, base.Add(time.Hour), 10)
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	assert.ElementsMatch(t, []string{done.ID, legacy.ID}, ids)
}

func TestGormStore_RateSession(t *testing.T) {
	gdb := newTestDB(t)
	st := NewGormStore(gdb)
	ctx := context.Background()

	tutor := &model.User{ID: "tutor-1", Email: "t@campus.edu"}
	_, err := st.EnsureUser(ctx, tutor)
	require.NoError(t, err)

	ratings := []int{5, 4, 4}
	var avg float64
	var count int
	for _, r := range ratings {
		avg, count, err = st.RateSession(ctx, &model.SessionRating{
			SessionID: uuid.NewString(), StudentID: "alice", TutorID: "tutor-1", Rating: r,
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 4.3, avg)
	assert.Equal(t, 3, count)

	u, err := st.GetUser(ctx, "tutor-1")
	require.NoError(t, err)
	assert.Equal(t, 4.3, u.RatingAvg)
	assert.Equal(t, 3, u.RatingCount)

	sessionID := uuid.NewString()
	_, _, err = st.RateSession(ctx, &model.SessionRating{SessionID: sessionID, StudentID: "alice", TutorID: "tutor-1", Rating: 1})
	require.NoError(t, err)
	_, _, err = st.RateSession(ctx, &model.SessionRating{SessionID: sessionID, StudentID: "alice", TutorID: "tutor-1", Rating: 2})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestGormStore_RateSession_CompetingRatingWins(t *testing.T) {
	gdb := newTestDB(t)
	st := NewGormStore(gdb)
	ctx := context.Background()

	_, err := st.EnsureUser(ctx, &model.User{ID: "tutor-1", Email: "t@campus.edu"})
	require.NoError(t, err)

	sessionID := uuid.NewString()
	require.NoError(t, gdb.Create(&model.SessionRating{
		ID: uuid.NewString(), SessionID: sessionID, StudentID: "alice", TutorID: "tutor-1", Rating: 5,
	}).Error)

	_, _, err = st.RateSession(ctx, &model.SessionRating{SessionID: sessionID, StudentID: "alice", TutorID: "tutor-1", Rating: 1})
	assert.ErrorIs(t, err, ErrDuplicate)

	var rows int64
	require.NoError(t, gdb.Model(&model.SessionRating{}).Where("session_id = ?", sessionID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestGormStore_RateSession_SQLShape(t *testing.T) {
	gormDB, mock := newMockDB(t)
	st := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "session_ratings" .* ON CONFLICT \("session_id"\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, _, err := st.RateSession(context.Background(), &model.SessionRating{
		SessionID: "s-1", StudentID: "alice", TutorID: "tutor-1", Rating: 3,
	})
	assert.ErrorIs(t, err, ErrDuplicate, "a row lost to the unique index is a duplicate, not a failure")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_EligibleTutorsAndAvailability(t *testing.T) {
	gdb := newTestDB(t)
	st := NewGormStore(gdb)
	ctx := context.Background()

	users := []model.User{
		{ID: "ok", Email: "ok@x", Role: model.RoleTutor, TutorStatus: model.TutorStatusApproved, IsVerified: true},
		{ID: "unverified", Email: "u@x", Role: model.RoleTutor, TutorStatus: model.TutorStatusApproved},
		{ID: "gone", Email: "g@x", Role: model.RoleTutor, TutorStatus: model.TutorStatusApproved, IsVerified: true, IsDeactivated: true},
		{ID: "pending", Email: "p@x", TutorStatus: model.TutorStatusPending, IsVerified: true},
	}
	for i := range users {
		require.NoError(t, gdb.Create(&users[i]).Error)
		require.NoError(t, st.SetTutorSubjects(ctx, users[i].ID, []string{"math"}))
	}

	tutors, err := st.EligibleTutors(ctx, "math", 50)
	require.NoError(t, err)
	require.Len(t, tutors, 1)
	assert.Equal(t, "ok", tutors[0].ID)

	teaches, err := st.TeachesSubject(ctx, "ok", "math")
	require.NoError(t, err)
	assert.True(t, teaches)

	require.NoError(t, st.SaveAvailability(ctx, &model.Availability{TutorID: "ok", Days: datatypes.JSON(`["old"]`), CreatedAt: base}))
	require.NoError(t, st.SaveAvailability(ctx, &model.Availability{TutorID: "ok", Days: datatypes.JSON(`["new"]`), CreatedAt: base.Add(time.Minute)}))

	latest, err := st.LatestAvailabilities(ctx, []string{"ok", "pending"})
	require.NoError(t, err)
	assert.Len(t, latest, 1)
	assert.JSONEq(t, `["new"]`, string(latest["ok"].Days))

	one, err := st.LatestAvailability(ctx, "ok")
	require.NoError(t, err)
	assert.JSONEq(t, `["new"]`, string(one.Days))

	_, err = st.LatestAvailability(ctx, "pending")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_EligibleTutorsSamplesBeyondLimit(t *testing.T) {
	gdb := newTestDB(t)
	st := NewGormStore(gdb)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("tutor-%02d", i)
		require.NoError(t, gdb.Create(&model.User{
			ID: id, Email: id + "@x", Role: model.RoleTutor,
			TutorStatus: model.TutorStatusApproved, IsVerified: true,
		}).Error)
		require.NoError(t, st.SetTutorSubjects(ctx, id, []string{"math"}))
	}

	seen := map[string]bool{}
	for run := 0; run < 30; run++ {
		tutors, err := st.EligibleTutors(ctx, "math", 5)
		require.NoError(t, err)
		require.Len(t, tutors, 5)
		for _, u := range tutors {
			seen[u.ID] = true
		}
	}
	assert.Greater(t, len(seen), 5, "tutors past the first page by id must be reachable")
}

func TestGormStore_ApproveTutor(t *testing.T) {
	gdb := newTestDB(t)
	st := NewGormStore(gdb)
	ctx := context.Background()

	_, err := st.EnsureUser(ctx, &model.User{ID: "u1", Email: "u1@x"})
	require.NoError(t, err)

	ok, err := st.ApproveTutor(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok, "cannot approve without an application")

	ok, err = st.ApplyTutor(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.ApproveTutor(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	u, err := st.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleTutor, u.Role)
	assert.True(t, u.EligibleTutor())
}

func TestGormStore_ChatChannels(t *testing.T) {
	gdb := newTestDB(t)
	st := NewGormStore(gdb)
	ctx := context.Background()

	require.NoError(t, st.OpenChannel(ctx, &model.ChatChannel{SessionID: "s1", StudentID: "alice", TutorID: "tutor-1"}))
	require.NoError(t, st.OpenChannel(ctx, &model.ChatChannel{SessionID: "s1", StudentID: "alice", TutorID: "tutor-1"}))

	channels, err := st.ListChannels(ctx, "tutor-1")
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Nil(t, channels[0].CloseAt)

	closeAt := base.Add(9 * time.Hour)
	require.NoError(t, st.ScheduleChannelClose(ctx, &model.ChatChannel{SessionID: "s1", StudentID: "alice", TutorID: "tutor-1", CloseAt: &closeAt}))

	ch, err := st.GetChannel(ctx, channels[0].ID)
	require.NoError(t, err)
	require.NotNil(t, ch.CloseAt)
	assert.True(t, ch.CloseAt.Equal(closeAt))

	closed, err := st.CloseChannel(ctx, "s1", base)
	require.NoError(t, err)
	assert.True(t, closed)

	closed, err = st.CloseChannel(ctx, "s1", base.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, closed, "already closed")

	closed, err = st.CloseChannel(ctx, "missing", base)
	require.NoError(t, err)
	assert.False(t, closed)

	require.NoError(t, st.AddMessage(ctx, &model.ChatMessage{ChannelID: ch.ID, SenderID: "alice", Body: "hi", CreatedAt: base}))
	msgs, err := st.ListMessages(ctx, ch.ID, Page{})
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestGormStore_Notifications(t *testing.T) {
	gdb := newTestDB(t)
	st := NewGormStore(gdb)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, st.CreateNotification(ctx, &model.Notification{
			UserID: "alice", Kind: "session.cancelled", Title: "t", CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	page, err := st.ListNotifications(ctx, "alice", Page{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt))

	older, err := st.ListNotifications(ctx, "alice", Page{Before: timePtr(page[1].CreatedAt)})
	require.NoError(t, err)
	assert.Len(t, older, 1)

	ok, err := st.MarkNotificationRead(ctx, "bob", page[0].ID, base)
	require.NoError(t, err)
	assert.False(t, ok, "cannot read someone else's notification")

	ok, err = st.MarkNotificationRead(ctx, "alice", page[0].ID, base)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := st.CountUnread(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	marked, err := st.MarkAllNotificationsRead(ctx, "alice", base)
	require.NoError(t, err)
	assert.Equal(t, int64(2), marked)
}
