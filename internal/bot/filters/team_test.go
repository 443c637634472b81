package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"serotonyl.ru/kudos-bot/internal/common"
)

func TestTeamFilter_CheckAccess(t *testing.T) {
	tests := []struct {
		name   string
		teamID string
		cmd    *common.Command
		want   bool
	}{
		{"nil", "", nil, false},
		{"no user", "", &common.Command{ChannelID: "C1"}, false},
		{"any team", "", &common.Command{UserID: "U1", ChannelID: "C1", TeamID: "T9"}, true},
		{"own team", "T1", &common.Command{UserID: "U1", ChannelID: "C1", TeamID: "T1"}, true},
		{"foreign team", "T1", &common.Command{UserID: "U1", ChannelID: "C1", TeamID: "T2"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewTeamFilter(tt.teamID).CheckAccess(tt.cmd))
		})
	}
}

func TestTeamFilter_AllowEvent(t *testing.T) {
	f := NewTeamFilter("T1")
	assert.True(t, f.AllowEvent("T1", "U1", ""))
	assert.False(t, f.AllowEvent("T1", "U1", "B1"))
	assert.False(t, f.AllowEvent("T1", "", ""))
	assert.False(t, f.AllowEvent("T2", "U1", ""))
	assert.True(t, NewTeamFilter("").AllowEvent("T2", "U1", ""))
}
