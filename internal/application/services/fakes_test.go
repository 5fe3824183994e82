package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Paul-Karonji/taskiq/internal/domain/entities"
	"github.com/Paul-Karonji/taskiq/internal/ports"
)

// In-memory fakes shared by the service tests.

type fakeTaskRepo struct {
	tasks    map[uuid.UUID]*entities.Task
	tags     map[uuid.UUID][]uuid.UUID
	casCalls int
	// onGet fires once after the next GetByID, to interleave a concurrent
	// write between a service's read and its write.
	onGet func()
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{
		tasks: make(map[uuid.UUID]*entities.Task),
		tags:  make(map[uuid.UUID][]uuid.UUID),
	}
}

func (r *fakeTaskRepo) Create(_ context.Context, task *entities.Task) error {
	cp := *task
	r.tasks[task.ID] = &cp
	return nil
}

func (r *fakeTaskRepo) GetByID(_ context.Context, userID, taskID uuid.UUID) (*entities.Task, error) {
	task, ok := r.tasks[taskID]
	if !ok || task.UserID != userID {
		return nil, entities.ErrTaskNotFound
	}
	cp := *task
	if r.onGet != nil {
		hook := r.onGet
		r.onGet = nil
		hook()
	}
	return &cp, nil
}

func (r *fakeTaskRepo) Update(_ context.Context, task *entities.Task) error {
	stored, ok := r.tasks[task.ID]
	if !ok || stored.UserID != task.UserID {
		return entities.ErrTaskNotFound
	}
	cp := *task
	r.tasks[task.ID] = &cp
	return nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, userID, taskID uuid.UUID) error {
	task, ok := r.tasks[taskID]
	if !ok || task.UserID != userID {
		return entities.ErrTaskNotFound
	}
	delete(r.tasks, taskID)
	return nil
}

func (r *fakeTaskRepo) List(_ context.Context, userID uuid.UUID, _ ports.TaskFilter) ([]*entities.Task, int, error) {
	var out []*entities.Task
	for _, task := range r.tasks {
		if task.UserID == userID {
			cp := *task
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

// dueWithin mirrors the repository's calendar-date comparison: due_date is
// a DATE column, so bounds and due dates compare as dates in their own
// zones, never as instants.
func dueWithin(due, from, to time.Time) bool {
	d := due.Format("2006-01-02")
	return d >= from.Format("2006-01-02") && d < to.Format("2006-01-02")
}

func (r *fakeTaskRepo) ListDueBetween(_ context.Context, userID uuid.UUID, from, to time.Time) ([]*entities.Task, error) {
	var out []*entities.Task
	for _, task := range r.tasks {
		if task.UserID != userID || task.Status != entities.TaskStatusPending || task.DueDate == nil {
			continue
		}
		if dueWithin(*task.DueDate, from, to) {
			cp := *task
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) CountStats(_ context.Context, userID uuid.UUID, from, to time.Time) (*entities.TaskStats, error) {
	stats := &entities.TaskStats{}
	for _, task := range r.tasks {
		if task.UserID != userID || task.DueDate == nil || !dueWithin(*task.DueDate, from, to) {
			continue
		}
		switch task.Status {
		case entities.TaskStatusPending:
			stats.Pending++
			if task.Priority == entities.PriorityHigh {
				stats.HighPriority++
			}
			if task.EstimatedMinutes != nil {
				stats.TotalEstimatedTime += *task.EstimatedMinutes
			}
		case entities.TaskStatusCompleted:
			stats.Completed++
		}
	}
	return stats, nil
}

func (r *fakeTaskRepo) SetTags(_ context.Context, userID, taskID uuid.UUID, tagIDs []uuid.UUID) error {
	task, ok := r.tasks[taskID]
	if !ok || task.UserID != userID {
		return entities.ErrTaskNotFound
	}
	r.tags[taskID] = tagIDs
	return nil
}

func (r *fakeTaskRepo) SetGoogleEventID(_ context.Context, userID, taskID uuid.UUID, expected, next *string) error {
	r.casCalls++
	task, ok := r.tasks[taskID]
	if !ok || task.UserID != userID {
		return entities.ErrTaskNotFound
	}
	current, want := task.GoogleEventID, expected
	switch {
	case current == nil && want == nil:
	case current != nil && want != nil && *current == *want:
	default:
		return entities.ErrSyncStateChanged
	}
	task.GoogleEventID = next
	return nil
}

type fakeCategoryRepo struct {
	categories map[uuid.UUID]*entities.Category
	createErr  error
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{categories: make(map[uuid.UUID]*entities.Category)}
}

func (r *fakeCategoryRepo) Create(_ context.Context, category *entities.Category) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.categories {
		if existing.UserID == category.UserID && existing.Name == category.Name {
			return entities.ErrDuplicateName
		}
	}
	cp := *category
	r.categories[category.ID] = &cp
	return nil
}

func (r *fakeCategoryRepo) GetByID(_ context.Context, userID, categoryID uuid.UUID) (*entities.Category, error) {
	category, ok := r.categories[categoryID]
	if !ok || category.UserID != userID {
		return nil, entities.ErrCategoryNotFound
	}
	cp := *category
	return &cp, nil
}

func (r *fakeCategoryRepo) Update(_ context.Context, category *entities.Category) error {
	stored, ok := r.categories[category.ID]
	if !ok || stored.UserID != category.UserID {
		return entities.ErrCategoryNotFound
	}
	cp := *category
	r.categories[category.ID] = &cp
	return nil
}

func (r *fakeCategoryRepo) Delete(_ context.Context, userID, categoryID uuid.UUID) error {
	category, ok := r.categories[categoryID]
	if !ok || category.UserID != userID {
		return entities.ErrCategoryNotFound
	}
	delete(r.categories, categoryID)
	return nil
}

func (r *fakeCategoryRepo) List(_ context.Context, userID uuid.UUID) ([]*entities.Category, error) {
	var out []*entities.Category
	for _, category := range r.categories {
		if category.UserID == userID {
			cp := *category
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*entities.User
}

func newFakeUserRepo(users ...*entities.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uuid.UUID]*entities.User)}
	for _, u := range users {
		cp := *u
		r.users[u.ID] = &cp
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user *entities.User) error {
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*entities.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*entities.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, entities.ErrUserNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, user *entities.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return entities.ErrUserNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

type fakeAccountRepo struct {
	accounts map[uuid.UUID]*entities.Account
}

func newFakeAccountRepo(accounts ...*entities.Account) *fakeAccountRepo {
	r := &fakeAccountRepo{accounts: make(map[uuid.UUID]*entities.Account)}
	for _, a := range accounts {
		cp := *a
		r.accounts[a.UserID] = &cp
	}
	return r
}

func (r *fakeAccountRepo) Upsert(_ context.Context, account *entities.Account) error {
	cp := *account
	r.accounts[account.UserID] = &cp
	return nil
}

func (r *fakeAccountRepo) GetByProvider(_ context.Context, provider, providerAccountID string) (*entities.Account, error) {
	for _, account := range r.accounts {
		if account.Provider == provider && account.ProviderAccountID == providerAccountID {
			cp := *account
			return &cp, nil
		}
	}
	return nil, entities.ErrAccountNotFound
}

func (r *fakeAccountRepo) GetForUser(_ context.Context, userID uuid.UUID, provider string) (*entities.Account, error) {
	account, ok := r.accounts[userID]
	if !ok || account.Provider != provider {
		return nil, entities.ErrAccountNotFound
	}
	cp := *account
	return &cp, nil
}

type fakeSessionRepo struct {
	sessions map[string]*entities.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*entities.Session)}
}

func (r *fakeSessionRepo) Create(_ context.Context, session *entities.Session) error {
	cp := *session
	r.sessions[session.TokenHash] = &cp
	return nil
}

func (r *fakeSessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*entities.Session, error) {
	session, ok := r.sessions[tokenHash]
	if !ok {
		return nil, entities.ErrSessionNotFound
	}
	cp := *session
	return &cp, nil
}

func (r *fakeSessionRepo) Revoke(_ context.Context, tokenHash string) error {
	session, ok := r.sessions[tokenHash]
	if !ok {
		return entities.ErrSessionNotFound
	}
	now := time.Now()
	session.RevokedAt = &now
	return nil
}

func (r *fakeSessionRepo) RevokeAllForUser(_ context.Context, userID uuid.UUID) error {
	now := time.Now()
	for _, session := range r.sessions {
		if session.UserID == userID {
			session.RevokedAt = &now
		}
	}
	return nil
}

type fakeNotificationRepo struct {
	prefs map[uuid.UUID]*entities.NotificationPreference
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{prefs: make(map[uuid.UUID]*entities.NotificationPreference)}
}

func (r *fakeNotificationRepo) Create(_ context.Context, pref *entities.NotificationPreference) error {
	cp := *pref
	r.prefs[pref.UserID] = &cp
	return nil
}

func (r *fakeNotificationRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*entities.NotificationPreference, error) {
	pref, ok := r.prefs[userID]
	if !ok {
		return nil, entities.ErrPreferenceNotFound
	}
	cp := *pref
	return &cp, nil
}

func (r *fakeNotificationRepo) Update(_ context.Context, pref *entities.NotificationPreference) error {
	if _, ok := r.prefs[pref.UserID]; !ok {
		return entities.ErrPreferenceNotFound
	}
	cp := *pref
	r.prefs[pref.UserID] = &cp
	return nil
}

func (r *fakeNotificationRepo) ListEmailEnabled(_ context.Context) ([]*entities.NotificationPreference, error) {
	var out []*entities.NotificationPreference
	for _, pref := range r.prefs {
		if pref.DailyEmail || pref.WeeklyEmail {
			cp := *pref
			out = append(out, &cp)
		}
	}
	return out, nil
}

// fakeCalendar records calls and fails on demand.
type fakeCalendar struct {
	createErr   error
	deleteErr   error
	created     []ports.CalendarEvent
	deleted     []string
	nextEventID string
}

func (c *fakeCalendar) CreateEvent(_ context.Context, _ *entities.Account, event ports.CalendarEvent) (string, error) {
	if c.createErr != nil {
		return "", c.createErr
	}
	c.created = append(c.created, event)
	if c.nextEventID == "" {
		c.nextEventID = "evt-1"
	}
	return c.nextEventID, nil
}

func (c *fakeCalendar) DeleteEvent(_ context.Context, _ *entities.Account, eventID string) error {
	if c.deleteErr != nil {
		return c.deleteErr
	}
	c.deleted = append(c.deleted, eventID)
	return nil
}

type fakeCache struct {
	entries map[string][]byte
	dropped []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	return nil
}

func (c *fakeCache) Get(_ context.Context, key string, dest interface{}) error {
	data, ok := c.entries[key]
	if !ok {
		return fmt.Errorf("cache miss")
	}
	return json.Unmarshal(data, dest)
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	delete(c.entries, key)
	return nil
}

func (c *fakeCache) DeletePattern(_ context.Context, pattern string) error {
	c.dropped = append(c.dropped, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

// fakeWipeStore backs the transactor with snapshot/rollback semantics so a
// mid-transaction failure observably leaves everything in place.
type fakeWipeStore struct {
	users    map[uuid.UUID]bool
	tasks    int
	sessions int
	steps    []string
	failAt   string
}

func newFakeWipeStore(userID uuid.UUID) *fakeWipeStore {
	return &fakeWipeStore{
		users:    map[uuid.UUID]bool{userID: true},
		tasks:    3,
		sessions: 2,
	}
}

func (s *fakeWipeStore) WipeInTx(_ context.Context, fn func(ports.AccountWipe) error) error {
	snapshot := *s
	snapshotUsers := make(map[uuid.UUID]bool, len(s.users))
	for k, v := range s.users {
		snapshotUsers[k] = v
	}

	if err := fn((*fakeWipe)(s)); err != nil {
		steps := s.steps
		*s = snapshot
		s.users = snapshotUsers
		s.steps = steps
		return err
	}
	return nil
}

type fakeWipe fakeWipeStore

func (w *fakeWipe) step(name string) error {
	w.steps = append(w.steps, name)
	if w.failAt == name {
		return fmt.Errorf("injected failure at %s", name)
	}
	return nil
}

func (w *fakeWipe) DeleteTaskTagLinks(_ context.Context, _ uuid.UUID) error {
	return w.step("task_tags")
}

func (w *fakeWipe) DeleteTasks(_ context.Context, _ uuid.UUID) error {
	if err := w.step("tasks"); err != nil {
		return err
	}
	w.tasks = 0
	return nil
}

func (w *fakeWipe) DeleteCategories(_ context.Context, _ uuid.UUID) error {
	return w.step("categories")
}

func (w *fakeWipe) DeleteTags(_ context.Context, _ uuid.UUID) error {
	return w.step("tags")
}

func (w *fakeWipe) DeleteNotificationPreference(_ context.Context, _ uuid.UUID) error {
	return w.step("notification_preferences")
}

func (w *fakeWipe) DeleteSessions(_ context.Context, _ uuid.UUID) error {
	if err := w.step("sessions"); err != nil {
		return err
	}
	w.sessions = 0
	return nil
}

func (w *fakeWipe) DeleteAccounts(_ context.Context, _ uuid.UUID) error {
	return w.step("accounts")
}

func (w *fakeWipe) DeleteUser(_ context.Context, userID uuid.UUID) error {
	if err := w.step("user"); err != nil {
		return err
	}
	delete(w.users, userID)
	return nil
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

type sentMail struct {
	to      string
	subject string
	body    string
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}
