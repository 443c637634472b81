package leaderboard

import (
	"serotonyl.ru/kudos-bot/internal/common"
	"serotonyl.ru/kudos-bot/internal/features/kudos"
)

// Title: "for <#A>", "for <#A> and <#B>", "for <#A>, <#B> and <#C>".
func Title(channelIDs []string) string {
	if len(channelIDs) == 0 {
		return ""
	}
	return "for " + common.JoinWithAnd(common.ChannelMentions(channelIDs))
}

// TopSenders возвращает всех отправителей с максимальным числом kudos.
// Ничьи за первое место показываются все, а не один.
func TopSenders(senders []kudos.Entry) (users []string, count int) {
	for _, e := range senders {
		switch {
		case e.Count > count:
			count = e.Count
			users = []string{e.UserID}
		case e.Count == count && count > 0:
			users = append(users, e.UserID)
		}
	}
	return users, count
}
