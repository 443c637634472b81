package channels

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/kudos-bot/internal/common"
	"serotonyl.ru/kudos-bot/internal/config"
)

type fakeStore struct {
	configs map[string]*Config
	err     error
}

func newFakeStore(cfgs ...*Config) *fakeStore {
	s := &fakeStore{configs: make(map[string]*Config)}
	for _, c := range cfgs {
		s.configs[c.ChannelID] = c
	}
	return s
}

func (s *fakeStore) Get(_ context.Context, id string) (*Config, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.configs[id], nil
}

func (s *fakeStore) Save(_ context.Context, u Update) error {
	if s.err != nil {
		return s.err
	}
	c, ok := s.configs[u.ChannelID]
	if !ok {
		c = &Config{ChannelID: u.ChannelID}
		s.configs[u.ChannelID] = c
	}
	if u.Personality != nil {
		c.Personality = u.Personality
	}
	if u.MonthlyQuota != nil {
		c.MonthlyQuota = u.MonthlyQuota
	}
	if u.LeaderboardLimit != nil {
		c.LeaderboardLimit = u.LeaderboardLimit
	}
	if u.Timezone != nil {
		c.Timezone = u.Timezone
	}
	if u.LeaderboardChannelID != nil {
		if *u.LeaderboardChannelID == "" {
			c.LeaderboardChannelID = nil
		} else {
			c.LeaderboardChannelID = u.LeaderboardChannelID
		}
	}
	return nil
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	delete(s.configs, id)
	return s.err
}

func (s *fakeStore) ListInheriting(_ context.Context, target string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []string
	for id, c := range s.configs {
		if c.LeaderboardChannelID != nil && *c.LeaderboardChannelID == target && id != target {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *fakeStore) List(_ context.Context) ([]Config, error) {
	var out []Config
	for _, c := range s.configs {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out, s.err
}

type names map[string]bool

func (n names) Has(name string) bool { return n[name] }

func ptr[T any](v T) *T { return &v }

var testDefaults = config.Defaults{
	Personality:      "crab",
	MonthlyQuota:     10,
	LeaderboardLimit: 10,
	Timezone:         "UTC",
}

func newTestService(store Store) *Service {
	return NewService(store, testDefaults, names{"crab": true, "robot": true})
}

func TestEffective_Defaults(t *testing.T) {
	svc := newTestService(newFakeStore())

	eff, err := svc.Effective(context.Background(), "C1")
	require.NoError(t, err)

	assert.Equal(t, "C1", eff.LeaderboardChannelID)
	assert.False(t, eff.Inherited)
	assert.Equal(t, "crab", eff.Personality)
	assert.Equal(t, 10, eff.MonthlyQuota)
	assert.Equal(t, 10, eff.LeaderboardLimit)
	assert.Equal(t, "UTC", eff.Timezone)
	assert.Equal(t, time.UTC, eff.Location)
	assert.Equal(t, []string{"C1"}, eff.Group)
}

func TestEffective_OwnFieldsFallBackIndividually(t *testing.T) {
	svc := newTestService(newFakeStore(&Config{
		ChannelID:    "C1",
		MonthlyQuota: ptr(5),
		Timezone:     ptr("UTC+3"),
	}))

	eff, err := svc.Effective(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, 5, eff.MonthlyQuota)
	assert.Equal(t, 10, eff.LeaderboardLimit)
	assert.Equal(t, "crab", eff.Personality)
	assert.Equal(t, "UTC+3", eff.Timezone)

	_, offset := time.Date(2025, 1, 1, 0, 0, 0, 0, eff.Location).Zone()
	assert.Equal(t, 3*3600, offset)
}

func TestEffective_InheritsFromTarget(t *testing.T) {
	store := newFakeStore(
		&Config{
			ChannelID:            "CA",
			MonthlyQuota:         ptr(3),
			Personality:          ptr("robot"),
			LeaderboardChannelID: ptr("CB"),
		},
		&Config{ChannelID: "CB", MonthlyQuota: ptr(25)},
	)
	svc := newTestService(store)

	eff, err := svc.Effective(context.Background(), "CA")
	require.NoError(t, err)

	assert.True(t, eff.Inherited)
	assert.Equal(t, "CB", eff.LeaderboardChannelID)
	assert.Equal(t, 25, eff.MonthlyQuota)
	// собственная персонажность CA игнорируется
	assert.Equal(t, "crab", eff.Personality)
	assert.Equal(t, []string{"CB", "CA"}, eff.Group)
}

func TestEffective_TargetWithoutConfigUsesDefaults(t *testing.T) {
	svc := newTestService(newFakeStore(&Config{
		ChannelID:            "CA",
		MonthlyQuota:         ptr(3),
		LeaderboardChannelID: ptr("CB"),
	}))

	eff, err := svc.Effective(context.Background(), "CA")
	require.NoError(t, err)
	assert.Equal(t, 10, eff.MonthlyQuota)
	assert.Equal(t, "CB", eff.LeaderboardChannelID)
}

func TestEffective_OneHopOnly(t *testing.T) {
	store := newFakeStore(
		&Config{ChannelID: "CA", LeaderboardChannelID: ptr("CB")},
		&Config{ChannelID: "CB", MonthlyQuota: ptr(7), LeaderboardChannelID: ptr("CC")},
		&Config{ChannelID: "CC", MonthlyQuota: ptr(99)},
	)
	svc := newTestService(store)

	eff, err := svc.Effective(context.Background(), "CA")
	require.NoError(t, err)
	assert.Equal(t, "CB", eff.LeaderboardChannelID)
	assert.Equal(t, 7, eff.MonthlyQuota)
}

func TestEffective_SelfReferenceIgnored(t *testing.T) {
	svc := newTestService(newFakeStore(&Config{
		ChannelID:            "CA",
		MonthlyQuota:         ptr(4),
		LeaderboardChannelID: ptr("CA"),
	}))

	eff, err := svc.Effective(context.Background(), "CA")
	require.NoError(t, err)
	assert.False(t, eff.Inherited)
	assert.Equal(t, 4, eff.MonthlyQuota)
	assert.Equal(t, []string{"CA"}, eff.Group)
}

func TestEffective_BadStoredTimezoneFallsBack(t *testing.T) {
	svc := newTestService(newFakeStore(&Config{ChannelID: "C1", Timezone: ptr("Mars/Olympus")}))

	eff, err := svc.Effective(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, "UTC", eff.Timezone)
	assert.Equal(t, time.UTC, eff.Location)
}

func TestEffective_StoreError(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("db down")

	_, err := newTestService(store).Effective(context.Background(), "C1")
	assert.Error(t, err)
	assert.False(t, common.IsValidation(err))
}

func TestSharedChannels(t *testing.T) {
	store := newFakeStore(
		&Config{ChannelID: "CZ", LeaderboardChannelID: ptr("CM")},
		&Config{ChannelID: "CA", LeaderboardChannelID: ptr("CM")},
		&Config{ChannelID: "CM"},
	)
	svc := newTestService(store)

	for _, id := range []string{"CM", "CA", "CZ"} {
		got, err := svc.SharedChannels(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, []string{"CM", "CA", "CZ"}, got, id)
	}
}

func TestSave(t *testing.T) {
	ctx := context.Background()

	t.Run("partial update keeps stored values", func(t *testing.T) {
		store := newFakeStore(&Config{ChannelID: "C1", MonthlyQuota: ptr(5), Personality: ptr("robot")})
		svc := newTestService(store)

		eff, err := svc.Save(ctx, Update{ChannelID: "C1", LeaderboardLimit: ptr(3)})
		require.NoError(t, err)
		assert.Equal(t, 5, eff.MonthlyQuota)
		assert.Equal(t, 3, eff.LeaderboardLimit)
		assert.Equal(t, "robot", eff.Personality)
	})

	t.Run("clear override", func(t *testing.T) {
		store := newFakeStore(&Config{ChannelID: "C1", LeaderboardChannelID: ptr("C2")})
		svc := newTestService(store)

		eff, err := svc.Save(ctx, Update{ChannelID: "C1", LeaderboardChannelID: ptr("")})
		require.NoError(t, err)
		assert.False(t, eff.Inherited)
	})

	tests := []struct {
		name string
		u    Update
		want error
	}{
		{"self override", Update{ChannelID: "C1", LeaderboardChannelID: ptr("C1")}, common.ErrSelfOverride},
		{"bad target", Update{ChannelID: "C1", LeaderboardChannelID: ptr("general")}, common.ErrInvalidChannelID},
		{"bad channel", Update{ChannelID: "x"}, common.ErrInvalidChannelID},
		{"zero quota", Update{ChannelID: "C1", MonthlyQuota: ptr(0)}, common.ErrInvalidQuota},
		{"zero limit", Update{ChannelID: "C1", LeaderboardLimit: ptr(0)}, common.ErrInvalidLimit},
		{"unknown personality", Update{ChannelID: "C1", Personality: ptr("pirate")}, common.ErrUnknownPersonality},
		{"bad timezone", Update{ChannelID: "C1", Timezone: ptr("UTC+99")}, common.ErrInvalidTimezone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			_, err := newTestService(store).Save(ctx, tt.u)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, common.IsValidation(err))
			assert.Empty(t, store.configs)
		})
	}
}

func TestReset(t *testing.T) {
	store := newFakeStore(&Config{ChannelID: "C1", MonthlyQuota: ptr(5)})
	svc := newTestService(store)

	require.NoError(t, svc.Reset(context.Background(), "C1"))
	eff, err := svc.Effective(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, 10, eff.MonthlyQuota)
}

func TestCurrentPeriod(t *testing.T) {
	svc := newTestService(newFakeStore(&Config{ChannelID: "C1", Timezone: ptr("UTC+3")}))
	// 31 января 22:30 UTC, а в UTC+3 это уже 1 февраля
	svc.now = func() time.Time { return time.Date(2025, 1, 31, 22, 30, 0, 0, time.UTC) }

	p, err := svc.CurrentPeriod(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, time.February, p.Month)
	assert.Equal(t, 2025, p.Year)
}

func TestTimezoneOptions(t *testing.T) {
	opts := TimezoneOptions()
	assert.Len(t, opts, 27)
	assert.Equal(t, "UTC", opts[0])
	assert.Contains(t, opts, "UTC+14")
	assert.Contains(t, opts, "UTC-12")
	for _, o := range opts {
		_, err := common.LoadLocation(o)
		assert.NoError(t, err, o)
	}
}
