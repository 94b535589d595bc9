package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/geocoder89/feedbackhub/internal/domain/account"
	"github.com/geocoder89/feedbackhub/internal/domain/feedback"
)

// Store keeps accounts and feedback in process memory. It mirrors the
// Postgres repositories, including the atomic rated-by append, and is used by
// tests and single-process development runs.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]account.Account // {"id": account}
	order    []string
	byEmail  map[account.Role]map[string]string
	feedback []feedback.Feedback
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]account.Account),
		byEmail: map[account.Role]map[string]string{
			account.RoleStudent: {},
			account.RoleTeacher: {},
		},
	}
}

func clone(a account.Account) account.Account {
	a.RatedBy = slices.Clone(a.RatedBy)
	return a
}

func (s *Store) FindByEmail(_ context.Context, role account.Role, email string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[role][email]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return clone(s.accounts[id]), nil
}

func (s *Store) Create(_ context.Context, a account.Account) (account.Account, error) {
	if !a.Role.Valid() {
		return account.Account{}, account.ErrInvalidRole
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[a.Role][a.Email]; taken {
		return account.Account{}, account.ErrEmailTaken
	}
	if a.Role == account.RoleTeacher && a.RatedBy == nil {
		a.RatedBy = []string{}
	}

	s.accounts[a.ID] = clone(a)
	s.byEmail[a.Role][a.Email] = a.ID
	s.order = append(s.order, a.ID)

	return clone(a), nil
}

func (s *Store) get(id string, role account.Role) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok || a.Role != role {
		return account.Account{}, account.ErrNotFound
	}
	return clone(a), nil
}

func (s *Store) GetTeacher(_ context.Context, id string) (account.Account, error) {
	return s.get(id, account.RoleTeacher)
}

func (s *Store) GetStudent(_ context.Context, id string) (account.Account, error) {
	return s.get(id, account.RoleStudent)
}

func (s *Store) list(role account.Role) []account.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]account.Account, 0)
	for _, id := range s.order {
		if a := s.accounts[id]; a.Role == role {
			out = append(out, clone(a))
		}
	}
	return out
}

func (s *Store) ListStudents(_ context.Context) ([]account.Account, error) {
	return s.list(account.RoleStudent), nil
}

func (s *Store) ListTeachers(_ context.Context) ([]account.Account, error) {
	return s.list(account.RoleTeacher), nil
}

// Submit adds studentID to the teacher's rated-by set and records fb under a
// single lock, so the membership check and the append cannot interleave.
func (s *Store) Submit(_ context.Context, studentID string, fb feedback.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	teacher, ok := s.accounts[fb.TeacherID]
	if !ok || teacher.Role != account.RoleTeacher {
		return feedback.ErrTeacherNotFound
	}
	if slices.Contains(teacher.RatedBy, studentID) {
		return feedback.ErrAlreadySubmitted
	}

	teacher.RatedBy = append(slices.Clone(teacher.RatedBy), studentID)
	s.accounts[teacher.ID] = teacher
	s.feedback = append(s.feedback, fb)

	return nil
}

func (s *Store) ListFeedbackByTeacher(_ context.Context, teacherID string) ([]feedback.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]feedback.Feedback, 0)
	for _, fb := range s.feedback {
		if fb.TeacherID == teacherID {
			out = append(out, fb)
		}
	}
	return out, nil
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}
