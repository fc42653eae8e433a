package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"notify-engine/internal/domain/entity"
	"notify-engine/internal/repository"
)

type ChannelRepo struct{ db *sql.DB }

func NewChannelRepo(db *sql.DB) repository.ChannelRepository {
	return &ChannelRepo{db: db}
}

// ResolveChannels returns the enabled channels of userID. Default channels
// come first, then channels in creation order.
func (repo *ChannelRepo) ResolveChannels(ctx context.Context, tenant, userID string) ([]entity.Channel, error) {
	const query = `
SELECT id, type, config, is_default
FROM notification_channels
WHERE tenant = $1 AND user_id = $2 AND enabled = TRUE
ORDER BY is_default DESC, created_at ASC, id ASC`

	channels := make([]entity.Channel, 0, 4)
	err := timed("resolve_channels", func() error {
		rows, err := repo.db.QueryContext(ctx, query, tenant, userID)
		if err != nil {
			return wrapErr("ResolveChannels", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var (
				ch          entity.Channel
				channelType string
				configJSON  []byte
			)
			if err := rows.Scan(&ch.ID, &channelType, &configJSON, &ch.IsDefault); err != nil {
				return fmt.Errorf("ResolveChannels: scan: %w", err)
			}
			ch.Type = entity.ChannelType(channelType)

			if len(configJSON) > 0 {
				if err := json.Unmarshal(configJSON, &ch.Config); err != nil {
					return fmt.Errorf("ResolveChannels: unmarshal config of channel %s: %w", ch.ID, err)
				}
			}
			channels = append(channels, ch)
		}
		if err := rows.Err(); err != nil {
			return wrapErr("ResolveChannels", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return channels, nil
}
