package bot

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/kudos-bot/internal/bot/filters"
	"serotonyl.ru/kudos-bot/internal/bot/middleware"
	"serotonyl.ru/kudos-bot/internal/cache"
	"serotonyl.ru/kudos-bot/internal/config"
	"serotonyl.ru/kudos-bot/internal/db/memory"
	"serotonyl.ru/kudos-bot/internal/features/channels"
	"serotonyl.ru/kudos-bot/internal/features/kudos"
	"serotonyl.ru/kudos-bot/internal/features/leaderboard"
	"serotonyl.ru/kudos-bot/internal/features/status"
	"serotonyl.ru/kudos-bot/internal/personality"
)

const testSecret = "signing-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	server *Server
	bot    *Bot
	api    *fakeSlack

	mu    sync.Mutex
	hooks []string
}

func (h *harness) replies() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.hooks...)
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	catalog, err := personality.LoadBuiltin("crab")
	require.NoError(t, err)

	cfg := &config.Config{
		BotMaxInflight:    4,
		BotCommandTimeout: 5 * time.Second,
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
	}
	defaults := config.Defaults{Personality: "crab", MonthlyQuota: 10, LeaderboardLimit: 10, Timezone: "UTC"}

	h := &harness{api: &fakeSlack{botUserID: "UBOT", users: []slack.User{{ID: "U1"}, {ID: "U2"}}}}
	replier := NewReplier(h.api)
	replier.webhook = func(_ context.Context, _ string, msg *slack.WebhookMessage) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.hooks = append(h.hooks, msg.Text)
		return nil
	}

	store := memory.New()
	dir := NewDirectory(h.api, cache.NewMemory(), time.Hour)
	modals := NewModals(h.api, catalog)

	chSvc := channels.NewService(store, defaults, catalog)
	ledger := kudos.NewLedger(store, chSvc)
	kSvc := kudos.NewService(store, ledger, chSvc, dir)
	lbSvc := leaderboard.NewService(store, chSvc, dir, dir)

	handlers := Handlers{
		Kudos:       kudos.NewHandler(kSvc, chSvc, catalog, replier),
		Leaderboard: leaderboard.NewHandler(lbSvc, catalog, replier),
		Channels:    channels.NewHandler(chSvc, catalog, replier, modals),
		Status:      status.NewHandler(status.NewService(store, chSvc), chSvc, catalog, replier, "test"),
	}
	filter := filters.NewTeamFilter("T1")
	h.bot = New(cfg, handlers, filter, replier, catalog)
	t.Cleanup(h.bot.Close)

	h.server = NewServer(ServerDeps{
		Bot:           h.bot,
		Modals:        modals,
		Channels:      handlers.Channels,
		Status:        handlers.Status,
		Replier:       replier,
		Filter:        filter,
		SigningSecret: testSecret,
	})
	return h
}

func signedRequest(path, contentType, body string) *http.Request {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte("v0:" + ts + ":" + body))

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return req
}

func (h *harness) command(t *testing.T, user, channelID, text string) {
	t.Helper()
	form := url.Values{
		"command":      {"/kk"},
		"team_id":      {"T1"},
		"channel_id":   {channelID},
		"user_id":      {user},
		"text":         {text},
		"response_url": {"https://hooks.slack.test/" + user},
		"trigger_id":   {"trigger-1"},
	}
	w := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(w, signedRequest("/slack/commands", "application/x-www-form-urlencoded", form.Encode()))
	require.Equal(t, http.StatusOK, w.Code)
	h.bot.Wait()
}

func TestServer_Health(t *testing.T) {
	h := newHarness(t)
	w := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestServer_RejectsUnsigned(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodPost, "/slack/commands", strings.NewReader("text=help"))
	w := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServer_Commands(t *testing.T) {
	h := newHarness(t)

	h.command(t, "U1", "C100", "help")
	require.Len(t, h.replies(), 1)
	assert.Contains(t, h.replies()[0], "You have 10 kudos to give")

	h.command(t, "U1", "C100", "<@U2> great job on the release")
	require.Len(t, h.replies(), 2)
	assert.Contains(t, h.replies()[1], "You have 9 kudos left this month.")
	require.Len(t, h.api.messages, 1)
	assert.Equal(t, "C100", h.api.messages[0].Channel)
	assert.Contains(t, h.api.messages[0].Text, "<@U1> sent kudos to <@U2>")

	h.command(t, "U1", "C100", "<@UBOT> <@U2> thanks")
	assert.Contains(t, h.replies()[2], "crabs don't need kudos")

	h.command(t, "U2", "C100", "leaderboard")
	assert.Contains(t, h.replies()[3], "<@U2> - 1 kudos")

	h.command(t, "U1", "C100", "version")
	assert.Contains(t, h.replies()[4], "test")
}

func TestServer_RateLimitedUser(t *testing.T) {
	h := newHarness(t)
	h.bot.rateLimiter.Close()
	h.bot.rateLimiter = middleware.NewRateLimiter(1, time.Minute)

	h.command(t, "U1", "C100", "help")
	h.command(t, "U1", "C100", "help")

	require.Len(t, h.replies(), 2)
	assert.Contains(t, h.replies()[1], "sending commands too fast")
	assert.NotContains(t, h.replies()[1], "Something went wrong")
}

func TestServer_ForeignTeamIgnored(t *testing.T) {
	h := newHarness(t)
	form := url.Values{"team_id": {"T2"}, "channel_id": {"C100"}, "user_id": {"U1"}, "text": {"help"}}
	w := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(w, signedRequest("/slack/commands", "application/x-www-form-urlencoded", form.Encode()))
	h.bot.Wait()

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, h.replies())
}

func TestServer_ConfigModalFlow(t *testing.T) {
	h := newHarness(t)

	h.command(t, "U1", "C100", "config edit")
	require.Len(t, h.api.opened, 1)
	assert.Equal(t, "C100", h.api.opened[0].PrivateMetadata)

	payload := `{"type":"view_submission","team":{"id":"T1"},"user":{"id":"U1"},` +
		`"view":{"callback_id":"config_modal","private_metadata":"C100",` +
		`"state":{"values":{"quota_block":{"quota_input":{"type":"plain_text_input","value":"12"}}}}}}`

	w := httptest.NewRecorder()
	body := url.Values{"payload": {payload}}.Encode()
	h.server.Handler().ServeHTTP(w, signedRequest("/slack/interactions", "application/x-www-form-urlencoded", body))
	h.bot.Wait()

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, h.api.ephemeral, 1)
	assert.Equal(t, "U1", h.api.ephemeral[0].User)
	assert.Contains(t, h.api.ephemeral[0].Text, "*Monthly Quota:* 12")

	h.command(t, "U1", "C100", "config")
	assert.Contains(t, h.replies()[len(h.replies())-1], "*Monthly Quota:* 12")
}

func TestServer_Events(t *testing.T) {
	h := newHarness(t)

	t.Run("url verification", func(t *testing.T) {
		body := `{"type":"url_verification","token":"x","challenge":"abc123"}`
		w := httptest.NewRecorder()
		h.server.Handler().ServeHTTP(w, signedRequest("/slack/events", "application/json", body))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"challenge":"abc123"}`, w.Body.String())
	})

	t.Run("app mention", func(t *testing.T) {
		body := `{"type":"event_callback","team_id":"T1","event":{"type":"app_mention","user":"U1","text":"<@UBOT> hi","channel":"C9","ts":"1.0"}}`
		w := httptest.NewRecorder()
		h.server.Handler().ServeHTTP(w, signedRequest("/slack/events", "application/json", body))
		h.bot.Wait()

		assert.Equal(t, http.StatusOK, w.Code)
		require.Len(t, h.api.messages, 1)
		assert.Equal(t, "C9", h.api.messages[0].Channel)
		assert.Contains(t, h.api.messages[0].Text, "/kk help")
	})
}
