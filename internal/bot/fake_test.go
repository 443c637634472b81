package bot

import (
	"context"
	"sync"

	"github.com/slack-go/slack"
)

type posted struct {
	Channel string
	User    string
	Text    string
}

// fakeSlack — Web API в памяти.
type fakeSlack struct {
	mu sync.Mutex

	pages      [][]slack.Channel
	convErr    error
	convCalls  int
	users      []slack.User
	usersCalls int
	authCalls  int
	botUserID  string

	messages  []posted
	ephemeral []posted
	opened    []slack.ModalViewRequest
	updated   []slack.ModalViewRequest
}

func msgText(channelID string, options ...slack.MsgOption) string {
	_, vals, _ := slack.UnsafeApplyMsgOptions("", channelID, "", options...)
	return vals.Get("text")
}

func (f *fakeSlack) AuthTestContext(context.Context) (*slack.AuthTestResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCalls++
	return &slack.AuthTestResponse{UserID: f.botUserID}, nil
}

func (f *fakeSlack) GetConversationsContext(_ context.Context, params *slack.GetConversationsParameters) ([]slack.Channel, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.convCalls++
	if f.convErr != nil {
		return nil, "", f.convErr
	}
	page := 0
	if params.Cursor != "" {
		page = int(params.Cursor[0] - '0')
	}
	if page >= len(f.pages) {
		return nil, "", nil
	}
	next := ""
	if page+1 < len(f.pages) {
		next = string(rune('0' + page + 1))
	}
	return f.pages[page], next, nil
}

func (f *fakeSlack) GetUsersContext(context.Context, ...slack.GetUsersOption) ([]slack.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usersCalls++
	return f.users, nil
}

func (f *fakeSlack) PostMessageContext(_ context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, posted{Channel: channelID, Text: msgText(channelID, options...)})
	return channelID, "1.0", nil
}

func (f *fakeSlack) PostEphemeralContext(_ context.Context, channelID, userID string, options ...slack.MsgOption) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ephemeral = append(f.ephemeral, posted{Channel: channelID, User: userID, Text: msgText(channelID, options...)})
	return "1.0", nil
}

func (f *fakeSlack) OpenViewContext(_ context.Context, _ string, view slack.ModalViewRequest) (*slack.ViewResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, view)
	return &slack.ViewResponse{}, nil
}

func (f *fakeSlack) UpdateViewContext(_ context.Context, view slack.ModalViewRequest, _, _, _ string) (*slack.ViewResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, view)
	return &slack.ViewResponse{}, nil
}

func channel(id, name string) slack.Channel {
	var ch slack.Channel
	ch.ID = id
	ch.Name = name
	return ch
}
