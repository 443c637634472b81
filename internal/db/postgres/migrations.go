package postgres

// SQL-миграции встроены в код для упрощения деплоя.
// Порядок важен: версии только растут.
var Migrations = []Migration{
	{1, "kudos", migration001Kudos},
	{2, "channel_configs", migration002ChannelConfigs},
	{3, "channel_configs_leaderboard", migration003LeaderboardChannel},
}

var migration001Kudos = `
CREATE TABLE IF NOT EXISTS kudos (
    id BIGSERIAL PRIMARY KEY,
    sender VARCHAR(32) NOT NULL,
    receiver VARCHAR(32) NOT NULL,
    channel_id VARCHAR(32) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (sender <> receiver)
);

CREATE INDEX IF NOT EXISTS idx_kudos_sender_created ON kudos (sender, created_at);
CREATE INDEX IF NOT EXISTS idx_kudos_receiver_created ON kudos (receiver, created_at);
CREATE INDEX IF NOT EXISTS idx_kudos_channel_created ON kudos (channel_id, created_at);
`

var migration002ChannelConfigs = `
CREATE TABLE IF NOT EXISTS channel_configs (
    id BIGSERIAL PRIMARY KEY,
    channel_id VARCHAR(32) UNIQUE NOT NULL,
    personality_name VARCHAR(64),
    monthly_quota INTEGER CHECK (monthly_quota > 0),
    leaderboard_limit INTEGER CHECK (leaderboard_limit > 0),
    timezone VARCHAR(64),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Наследование лидерборда появилось позже, отдельной миграцией.
var migration003LeaderboardChannel = `
ALTER TABLE channel_configs ADD COLUMN IF NOT EXISTS leaderboard_channel_id VARCHAR(32);

CREATE INDEX IF NOT EXISTS idx_channel_configs_leaderboard
    ON channel_configs (leaderboard_channel_id)
    WHERE leaderboard_channel_id IS NOT NULL;
`
