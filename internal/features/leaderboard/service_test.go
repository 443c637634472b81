package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/kudos-bot/internal/common"
	"serotonyl.ru/kudos-bot/internal/features/channels"
	"serotonyl.ru/kudos-bot/internal/features/kudos"
	"serotonyl.ru/kudos-bot/internal/period"
)

var testNow = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

type fakeStore struct {
	events []kudos.Event
	err    error
	calls  []int // limits, с которыми вызывали Top
}

func (s *fakeStore) Top(_ context.Context, role kudos.Role, channelIDs []string, from, to time.Time, limit int) ([]kudos.Entry, error) {
	s.calls = append(s.calls, limit)
	if s.err != nil {
		return nil, s.err
	}
	in := make(map[string]bool)
	for _, id := range channelIDs {
		in[id] = true
	}
	counts := make(map[string]int)
	for _, e := range s.events {
		if !in[e.ChannelID] || e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		if role == kudos.RoleSender {
			counts[e.Sender]++
		} else {
			counts[e.Receiver]++
		}
	}
	var out []kudos.Entry
	for id, n := range counts {
		out = append(out, kudos.Entry{UserID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) add(sender, receiver, channelID string, at time.Time, n int) {
	for i := 0; i < n; i++ {
		s.events = append(s.events, kudos.Event{Sender: sender, Receiver: receiver, ChannelID: channelID, CreatedAt: at})
	}
}

type fakeResolver struct {
	eff map[string]*channels.Effective
}

func (r *fakeResolver) Effective(_ context.Context, channelID string) (*channels.Effective, error) {
	if eff, ok := r.eff[channelID]; ok {
		return eff, nil
	}
	return &channels.Effective{
		ChannelID:            channelID,
		LeaderboardChannelID: channelID,
		Personality:          "crab",
		MonthlyQuota:         10,
		LeaderboardLimit:     10,
		Timezone:             "UTC",
		Location:             time.UTC,
		Group:                []string{channelID},
	}, nil
}

type fakeNames struct {
	ids map[string]string
	err error
}

func (f fakeNames) ChannelIDByName(_ context.Context, name string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	id, ok := f.ids[name]
	if !ok {
		return "", common.ErrChannelNotFound
	}
	return id, nil
}

type fakeActive struct {
	ids map[string]bool
	err error
}

func (f fakeActive) ActiveUserIDs(context.Context) (map[string]bool, error) { return f.ids, f.err }

func newTestService(store Store, active ActiveUsers) *Service {
	svc := NewService(store, &fakeResolver{}, fakeNames{ids: map[string]string{"general": "CGEN"}}, active)
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestTopSenders(t *testing.T) {
	users, count := TopSenders([]kudos.Entry{{UserID: "U1", Count: 5}, {UserID: "U2", Count: 5}, {UserID: "U3", Count: 3}})
	assert.Equal(t, []string{"U1", "U2"}, users)
	assert.Equal(t, 5, count)

	users, count = TopSenders(nil)
	assert.Empty(t, users)
	assert.Zero(t, count)
}

func TestAggregate_OrderAndLimit(t *testing.T) {
	store := &fakeStore{}
	store.add("U1", "UB", "C1", testNow, 2)
	store.add("U2", "UA", "C1", testNow, 2)
	store.add("U3", "UC", "C1", testNow, 1)
	svc := newTestService(store, nil)

	p := period.Current(testNow)
	senders, receivers, err := svc.Aggregate(context.Background(), p, []string{"C1"}, 2)
	require.NoError(t, err)

	assert.Equal(t, []kudos.Entry{{UserID: "U1", Count: 2}, {UserID: "U2", Count: 2}}, senders)
	assert.Equal(t, []kudos.Entry{{UserID: "UA", Count: 2}, {UserID: "UB", Count: 2}}, receivers)

	senders, _, err = svc.Aggregate(context.Background(), p, []string{"C1"}, 0)
	require.NoError(t, err)
	assert.Len(t, senders, 3)
}

func TestAggregate_FiltersInactiveUsers(t *testing.T) {
	store := &fakeStore{}
	store.add("UGONE", "U2", "C1", testNow, 5)
	store.add("U1", "U2", "C1", testNow, 3)
	store.add("U3", "U2", "C1", testNow, 1)

	active := fakeActive{ids: map[string]bool{"U1": true, "U2": true, "U3": true}}
	svc := newTestService(store, active)

	senders, _, err := svc.Aggregate(context.Background(), period.Current(testNow), []string{"C1"}, 2)
	require.NoError(t, err)
	assert.Equal(t, []kudos.Entry{{UserID: "U1", Count: 3}, {UserID: "U3", Count: 1}}, senders)
	// с фильтром в хранилище идём без лимита
	assert.Equal(t, []int{0, 0}, store.calls)
}

func TestAggregate_ActiveUsersFailureKeepsBoard(t *testing.T) {
	store := &fakeStore{}
	store.add("UGONE", "U2", "C1", testNow, 5)

	svc := newTestService(store, fakeActive{err: errors.New("users.list failed")})

	senders, _, err := svc.Aggregate(context.Background(), period.Current(testNow), []string{"C1"}, 10)
	require.NoError(t, err)
	assert.Equal(t, []kudos.Entry{{UserID: "UGONE", Count: 5}}, senders)
}

func TestBuild(t *testing.T) {
	ctx := context.Background()

	store := &fakeStore{}
	store.add("U1", "U2", "C1", testNow, 2)
	store.add("U1", "U3", "C1", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 4)
	store.add("U5", "U6", "CGEN", testNow, 1)

	svc := newTestService(store, nil)

	t.Run("current month", func(t *testing.T) {
		b, err := svc.Build(ctx, Request{ChannelID: "C1"})
		require.NoError(t, err)
		assert.Equal(t, "January 2025", b.Period.String())
		assert.Equal(t, []kudos.Entry{{UserID: "U2", Count: 2}}, b.Receivers)
	})

	t.Run("month only resolves to most recent", func(t *testing.T) {
		b, err := svc.Build(ctx, Request{ChannelID: "C1", Text: "mar"})
		require.NoError(t, err)
		assert.Equal(t, "March 2024", b.Period.String())
		assert.Equal(t, []kudos.Entry{{UserID: "U3", Count: 4}}, b.Receivers)
	})

	t.Run("channel by name", func(t *testing.T) {
		b, err := svc.Build(ctx, Request{ChannelID: "C1", Text: "#general"})
		require.NoError(t, err)
		assert.Equal(t, "CGEN", b.Effective.ChannelID)
		assert.Equal(t, []kudos.Entry{{UserID: "U5", Count: 1}}, b.Senders)
	})

	t.Run("unknown channel aborts", func(t *testing.T) {
		_, err := svc.Build(ctx, Request{ChannelID: "C1", Text: "#nope"})
		assert.ErrorIs(t, err, common.ErrChannelNotFound)
	})

	t.Run("access denied aborts", func(t *testing.T) {
		denied := NewService(store, &fakeResolver{}, fakeNames{err: common.ErrChannelAccessDenied}, nil)
		_, err := denied.Build(ctx, Request{ChannelID: "C1", Text: "#general"})
		assert.ErrorIs(t, err, common.ErrChannelAccessDenied)
	})

	t.Run("complete with date", func(t *testing.T) {
		_, err := svc.Build(ctx, Request{ChannelID: "C1", Text: "complete aug"})
		assert.ErrorIs(t, err, common.ErrCompleteWithDate)
	})

	t.Run("complete has no limit", func(t *testing.T) {
		s := &fakeStore{}
		for i := 0; i < 15; i++ {
			s.add("U1", string(rune('A'+i)), "C1", testNow, 1)
		}
		b, err := newTestService(s, nil).Build(ctx, Request{ChannelID: "C1", Text: "complete"})
		require.NoError(t, err)
		assert.True(t, b.Params.Complete)
		assert.Len(t, b.Receivers, 15)
	})

	t.Run("shared group", func(t *testing.T) {
		s := &fakeStore{}
		s.add("U1", "U2", "CA", testNow, 1)
		s.add("U1", "U2", "CB", testNow, 1)
		resolver := &fakeResolver{eff: map[string]*channels.Effective{
			"CA": {
				ChannelID: "CA", LeaderboardChannelID: "CB", Inherited: true,
				Personality: "crab", LeaderboardLimit: 10, Location: time.UTC,
				Group: []string{"CB", "CA"},
			},
		}}
		gs := NewService(s, resolver, fakeNames{}, nil)
		gs.now = func() time.Time { return testNow }

		b, err := gs.Build(ctx, Request{ChannelID: "CA"})
		require.NoError(t, err)
		assert.Equal(t, []kudos.Entry{{UserID: "U2", Count: 2}}, b.Receivers)
	})
}

func TestBuild_TiedLeadersBeyondLimit(t *testing.T) {
	store := &fakeStore{}
	var want []string
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("U%02d", i)
		want = append(want, id)
		store.add(id, "UR", "C1", testNow, 2)
	}
	store.add("UZZ", "UR", "C1", testNow, 1)

	b, err := newTestService(store, nil).Build(context.Background(), Request{ChannelID: "C1"})
	require.NoError(t, err)

	assert.Len(t, b.Senders, 10, "список отправителей обрезан по лимиту")
	assert.Equal(t, want, b.Leaders, "все 12 лидеров с равным счётом")
	assert.Equal(t, 2, b.LeaderCount)
}

func TestBuild_LeadersSkipInactive(t *testing.T) {
	store := &fakeStore{}
	store.add("UGONE", "UR", "C1", testNow, 5)
	store.add("U1", "UR", "C1", testNow, 3)
	store.add("U2", "UR", "C1", testNow, 3)

	active := fakeActive{ids: map[string]bool{"U1": true, "U2": true, "UR": true}}
	b, err := newTestService(store, active).Build(context.Background(), Request{ChannelID: "C1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"U1", "U2"}, b.Leaders)
	assert.Equal(t, 3, b.LeaderCount)
}
