package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"serotonyl.ru/kudos-bot/internal/bot/filters"
	"serotonyl.ru/kudos-bot/internal/bot/middleware"
	"serotonyl.ru/kudos-bot/internal/common"
	"serotonyl.ru/kudos-bot/internal/features/channels"
	"serotonyl.ru/kudos-bot/internal/features/status"
)

// Server принимает колбэки Slack по HTTP.
type Server struct {
	bot      *Bot
	modals   *Modals
	channels *channels.Handler
	status   *status.Handler
	replier  common.Replier
	filter   *filters.TeamFilter

	engine *gin.Engine
	// base — контекст жизни сервера, от него стартует фоновая работа
	base context.Context
}

// ServerDeps — зависимости HTTP-сервера.
type ServerDeps struct {
	Bot           *Bot
	Modals        *Modals
	Channels      *channels.Handler
	Status        *status.Handler
	Replier       common.Replier
	Filter        *filters.TeamFilter
	SigningSecret string
}

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		bot:      deps.Bot,
		modals:   deps.Modals,
		channels: deps.Channels,
		status:   deps.Status,
		replier:  deps.Replier,
		filter:   deps.Filter,
		base:     context.Background(),
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(), middleware.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	slackGroup := r.Group("/slack")
	slackGroup.Use(middleware.VerifySlack(deps.SigningSecret))
	slackGroup.POST("/commands", s.handleCommand)
	slackGroup.POST("/interactions", s.handleInteraction)
	slackGroup.POST("/events", s.handleEvent)

	s.engine = r
	return s
}

// Handler — http.Handler для тестов и встраивания.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run слушает addr, пока не отменён ctx, затем мягко останавливается
// и дожидается команд в работе.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.base = ctx
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("HTTP сервер запущен, ждём колбэки Slack...")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTP сервер: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP сервер остановлен с ошибкой")
	}
	s.bot.Wait()
	log.Info("HTTP сервер остановлен")
	return nil
}

// handleCommand — слэш-команда /kk. Отвечаем 200 сразу, работа в фоне.
func (s *Server) handleCommand(c *gin.Context) {
	sc, err := slack.SlashCommandParse(c.Request)
	if err != nil {
		log.WithError(err).WithField("request_id", middleware.GetRequestID(c)).Warn("Некорректная слэш-команда")
		c.Status(http.StatusBadRequest)
		return
	}

	s.bot.Dispatch(s.base, &common.Command{
		RequestID:   middleware.GetRequestID(c),
		TeamID:      sc.TeamID,
		ChannelID:   sc.ChannelID,
		ChannelName: sc.ChannelName,
		UserID:      sc.UserID,
		Text:        sc.Text,
		ResponseURL: sc.ResponseURL,
		TriggerID:   sc.TriggerID,
	})
	c.Status(http.StatusOK)
}

// handleInteraction — отправка диалога настроек и выбор в списке.
func (s *Server) handleInteraction(c *gin.Context) {
	requestID := middleware.GetRequestID(c)

	var cb slack.InteractionCallback
	if err := json.Unmarshal([]byte(c.PostForm("payload")), &cb); err != nil {
		log.WithError(err).WithField("request_id", requestID).Warn("Некорректный payload интерактива")
		c.Status(http.StatusBadRequest)
		return
	}
	if !s.filter.AllowEvent(cb.Team.ID, cb.User.ID, "") {
		c.Status(http.StatusOK)
		return
	}

	switch cb.Type {
	case slack.InteractionTypeViewSubmission:
		if cb.View.CallbackID != configCallbackID {
			break
		}
		update := ParseConfigSubmission(cb.View)
		userID := cb.User.ID
		s.bot.Go(s.base, requestID, func(ctx context.Context) {
			s.channels.HandleSubmit(ctx, userID, update)
		})

	case slack.InteractionTypeBlockActions:
		for _, action := range cb.ActionCallback.BlockActions {
			if action.ActionID != actionPersonality {
				continue
			}
			view := cb.View
			selected := action.SelectedOption.Value
			s.bot.Go(s.base, requestID, func(ctx context.Context) {
				if err := s.modals.RefreshDescription(ctx, view, selected); err != nil {
					log.WithError(err).WithField("request_id", requestID).Warn("Не удалось обновить описание персонажности")
				}
			})
		}
	}

	// пустой ответ 200 закрывает диалог
	c.Status(http.StatusOK)
}

// handleEvent — Events API: проверка URL и упоминания бота.
func (s *Server) handleEvent(c *gin.Context) {
	requestID := middleware.GetRequestID(c)
	body := middleware.GetSlackBody(c)

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		log.WithError(err).WithField("request_id", requestID).Warn("Некорректное событие Slack")
		c.Status(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var r slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &r); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.JSON(http.StatusOK, gin.H{"challenge": r.Challenge})
		return

	case slackevents.CallbackEvent:
		mention, ok := event.InnerEvent.Data.(*slackevents.AppMentionEvent)
		if !ok || !s.filter.AllowEvent(event.TeamID, mention.User, mention.BotID) {
			break
		}
		channelID := mention.Channel
		s.bot.Go(s.base, requestID, func(ctx context.Context) {
			text := s.status.MentionReply(ctx, channelID)
			if err := s.replier.Post(ctx, channelID, text); err != nil {
				log.WithError(err).WithField("channel_id", channelID).Error("Ошибка ответа на упоминание")
			}
		})
	}

	c.Status(http.StatusOK)
}
