package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/slack-go/slack"

	"serotonyl.ru/kudos-bot/internal/features/channels"
)

// Идентификаторы диалога настроек канала.
const (
	configCallbackID = "config_modal"

	blockPersonality     = "personality_block"
	actionPersonality    = "personality_select"
	blockDescription     = "personality_description"
	blockQuota           = "quota_block"
	actionQuota          = "quota_input"
	blockLimit           = "limit_block"
	actionLimit          = "limit_input"
	blockTimezone        = "timezone_block"
	actionTimezone       = "timezone_select"
	blockLeaderboard     = "leaderboard_block"
	actionLeaderboard    = "leaderboard_input"
	noDescriptionMessage = "No description available"
)

// Modals открывает и обновляет диалог настроек канала.
type Modals struct {
	api     SlackAPI
	catalog channels.Catalog
}

var _ channels.ModalOpener = (*Modals)(nil)

func NewModals(api SlackAPI, catalog channels.Catalog) *Modals {
	return &Modals{api: api, catalog: catalog}
}

// OpenConfigModal — views.open с диалогом настроек.
func (m *Modals) OpenConfigModal(ctx context.Context, triggerID string, form channels.Form) error {
	if _, err := m.api.OpenViewContext(ctx, triggerID, ConfigModal(form)); err != nil {
		return fmt.Errorf("views.open: %w", err)
	}
	return nil
}

// RefreshDescription подменяет описание персонажности после выбора
// в выпадающем списке.
func (m *Modals) RefreshDescription(ctx context.Context, view slack.View, selected string) error {
	description := descriptionBlock(m.catalog.Description(selected))

	blocks := make([]slack.Block, 0, len(view.Blocks.BlockSet))
	for _, b := range view.Blocks.BlockSet {
		if cb, ok := b.(*slack.ContextBlock); ok && cb.BlockID == blockDescription {
			blocks = append(blocks, description)
			continue
		}
		blocks = append(blocks, b)
	}

	req := slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      configCallbackID,
		Title:           view.Title,
		Submit:          view.Submit,
		Close:           view.Close,
		Blocks:          slack.Blocks{BlockSet: blocks},
		PrivateMetadata: view.PrivateMetadata,
	}
	if _, err := m.api.UpdateViewContext(ctx, req, "", view.Hash, view.ID); err != nil {
		return fmt.Errorf("views.update: %w", err)
	}
	return nil
}

func plain(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, false, false)
}

func markdown(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}

func descriptionBlock(description string) *slack.ContextBlock {
	if description == "" {
		description = noDescriptionMessage
	}
	return slack.NewContextBlock(blockDescription, markdown("_"+description+"_"))
}

func disabledSection(title string) *slack.SectionBlock {
	return slack.NewSectionBlock(markdown("*"+title+"*\n_Disabled - inherited from source channel_"), nil, nil)
}

// ConfigModal собирает диалог настроек. Если канал наследует лидерборд,
// остальные поля показываются как унаследованные и не редактируются.
func ConfigModal(form channels.Form) slack.ModalViewRequest {
	inherited := form.LeaderboardChannelID != ""

	blocks := []slack.Block{
		slack.NewSectionBlock(markdown(fmt.Sprintf("Configure kudos settings for <#%s>", form.ChannelID)), nil, nil),
		slack.NewDividerBlock(),
	}

	if inherited {
		blocks = append(blocks,
			disabledSection("Personality"),
			disabledSection("Monthly Quota"),
			disabledSection("Leaderboard Limit"),
			disabledSection("Timezone"),
		)
	} else {
		var options []*slack.OptionBlockObject
		var initial *slack.OptionBlockObject
		description := ""
		for _, p := range form.Personalities {
			opt := slack.NewOptionBlockObject(p.Name, plain(titleCase(p.Name)), nil)
			options = append(options, opt)
			if p.Name == form.Personality {
				initial = opt
				description = p.Description
			}
		}
		personalitySelect := slack.NewOptionsSelectBlockElement(slack.OptTypeStatic, plain("Select personality"), actionPersonality, options...)
		personalitySelect.InitialOption = initial

		personalitySection := slack.NewSectionBlock(markdown("*Personality*"), nil, slack.NewAccessory(personalitySelect))
		personalitySection.BlockID = blockPersonality

		quotaInput := slack.NewPlainTextInputBlockElement(plain("Enter monthly quota"), actionQuota)
		quotaInput.InitialValue = strconv.Itoa(form.MonthlyQuota)

		limitInput := slack.NewPlainTextInputBlockElement(plain("Enter leaderboard limit"), actionLimit)
		limitInput.InitialValue = strconv.Itoa(form.LeaderboardLimit)

		var tzOptions []*slack.OptionBlockObject
		var tzInitial *slack.OptionBlockObject
		for _, tz := range form.Timezones {
			opt := slack.NewOptionBlockObject(tz, plain(tz), nil)
			tzOptions = append(tzOptions, opt)
			if tz == form.Timezone {
				tzInitial = opt
			}
		}
		if tzInitial == nil && len(tzOptions) > 0 {
			tzInitial = tzOptions[0]
		}
		tzSelect := slack.NewOptionsSelectBlockElement(slack.OptTypeStatic, plain("Select timezone"), actionTimezone, tzOptions...)
		tzSelect.InitialOption = tzInitial

		tzSection := slack.NewSectionBlock(markdown("*Timezone*"), nil, slack.NewAccessory(tzSelect))
		tzSection.BlockID = blockTimezone

		blocks = append(blocks,
			personalitySection,
			descriptionBlock(description),
			slack.NewInputBlock(blockQuota, plain("Monthly Quota"), nil, quotaInput),
			slack.NewInputBlock(blockLimit, plain("Leaderboard Limit"), plain("Number of users to show in leaderboards"), limitInput),
			tzSection,
		)
	}

	leaderboardInput := slack.NewPlainTextInputBlockElement(plain("Channel ID (e.g., C1234567890)"), actionLeaderboard)
	leaderboardInput.InitialValue = form.LeaderboardChannelID
	leaderboardBlock := slack.NewInputBlock(
		blockLeaderboard,
		plain("Use Another Channel's Leaderboard"),
		plain("Enter a channel ID to use that channel's leaderboard instead of this one. This channel will inherit all settings from the source channel."),
		leaderboardInput,
	)
	leaderboardBlock.Optional = true
	blocks = append(blocks, leaderboardBlock)

	return slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      configCallbackID,
		Title:           plain("Kudos Configuration"),
		Submit:          plain("Save"),
		Close:           plain("Cancel"),
		Blocks:          slack.Blocks{BlockSet: blocks},
		PrivateMetadata: form.ChannelID,
	}
}

// ParseConfigSubmission достаёт изменения из отправленного диалога.
//
// Пустые поля не меняют сохранённые значения. Нечисловая квота или
// размер превращаются в 0 и не проходят валидацию. Если указан канал
// лидерборда, остальные поля игнорируются (они наследуются).
func ParseConfigSubmission(view slack.View) channels.Update {
	u := channels.Update{ChannelID: view.PrivateMetadata}
	if view.State == nil {
		return u
	}

	for _, actions := range view.State.Values {
		for actionID, action := range actions {
			switch actionID {
			case actionPersonality:
				if v := action.SelectedOption.Value; v != "" {
					u.Personality = &v
				}
			case actionTimezone:
				if v := action.SelectedOption.Value; v != "" {
					u.Timezone = &v
				}
			case actionQuota:
				u.MonthlyQuota = parsePositive(action.Value)
			case actionLimit:
				u.LeaderboardLimit = parsePositive(action.Value)
			case actionLeaderboard:
				target := normalizeChannelRef(action.Value)
				u.LeaderboardChannelID = &target
			}
		}
	}

	if u.LeaderboardChannelID != nil && *u.LeaderboardChannelID != "" {
		u.Personality = nil
		u.MonthlyQuota = nil
		u.LeaderboardLimit = nil
		u.Timezone = nil
	}
	return u
}

func parsePositive(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		n = 0
	}
	return &n
}

// normalizeChannelRef принимает C123, #C123 и <#C123|name>.
func normalizeChannelRef(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "<")
	s = strings.TrimSuffix(s, ">")
	s = strings.TrimPrefix(s, "#")
	if i := strings.IndexByte(s, '|'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
