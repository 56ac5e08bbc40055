package engagement

import (
	"context"
	"sort"
	"time"

	"github.com/friendix-ai/engagement-engine/internal/domain"
)

// memStore is an in-memory UserStore for tests.
type memStore struct {
	users     map[int64]*domain.User
	updateErr error
	markErr   map[int64]error
}

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[int64]*domain.User),
		markErr: make(map[int64]error),
	}
}

func (s *memStore) add(user *domain.User) {
	clone := *user
	s.users[user.ID] = &clone
}

func (s *memStore) FindByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *memStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *memStore) UpdateEngagement(_ context.Context, id int64, eng domain.Engagement) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	user, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	user.Engagement = eng
	return nil
}

func (s *memStore) MarkDailyNudge(_ context.Context, id int64) error {
	if err := s.markErr[id]; err != nil {
		return err
	}
	user, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	user.Engagement.DailyMsgSent = true
	return nil
}

func (s *memStore) MarkReengagement(_ context.Context, id int64, tier int, sentAt time.Time) error {
	if err := s.markErr[id]; err != nil {
		return err
	}
	user, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	user.Engagement.ReengagementLevel = tier
	sent := sentAt.UTC()
	user.Engagement.LastReengagementSent = &sent
	return nil
}

func (s *memStore) ForEachUser(_ context.Context, fn func(*domain.User) error) error {
	ids := make([]int64, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		clone := *s.users[id]
		if err := fn(&clone); err != nil {
			return err
		}
	}
	return nil
}

// memNotifier records dispatched notifications and can be told to
// fail.
type memNotifier struct {
	inApp    []int64
	notices  map[int64][]int
	inAppErr error
	sendErr  error
}

func newMemNotifier() *memNotifier {
	return &memNotifier{notices: make(map[int64][]int)}
}

func (n *memNotifier) SendInApp(_ context.Context, userID int64, _ string, _ time.Time) error {
	if n.inAppErr != nil {
		return n.inAppErr
	}
	n.inApp = append(n.inApp, userID)
	return nil
}

func (n *memNotifier) SendReengagement(_ context.Context, user *domain.User, tier int) error {
	if n.sendErr != nil {
		return n.sendErr
	}
	if n.notices == nil {
		n.notices = make(map[int64][]int)
	}
	n.notices[user.ID] = append(n.notices[user.ID], tier)
	return nil
}
