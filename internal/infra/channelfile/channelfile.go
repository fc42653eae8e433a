// Package channelfile resolves delivery channels from a static YAML file.
// It backs single-tenant deployments and local development where channel
// settings are kept next to the service instead of in PostgreSQL.
//
// File format:
//
//	channels:
//	  - tenant: acme
//	    userId: u-1
//	    id: ch-email
//	    type: email
//	    isDefault: true
//	    config:
//	      email: jane@example.com
//	  - tenant: acme
//	    userId: u-1
//	    id: ch-slack
//	    type: slack
//	    enabled: false
//	    config:
//	      botToken: xoxb-...
//	      channel: "#ops"
package channelfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"notify-engine/internal/domain/entity"
	"notify-engine/internal/repository"
)

// ErrInvalidFile is returned when the channel file cannot be used.
var ErrInvalidFile = errors.New("invalid channel file")

type fileChannel struct {
	Tenant    string         `yaml:"tenant"`
	UserID    string         `yaml:"userId"`
	ID        string         `yaml:"id"`
	Type      string         `yaml:"type"`
	Enabled   *bool          `yaml:"enabled"`
	IsDefault bool           `yaml:"isDefault"`
	Config    map[string]any `yaml:"config"`
}

type file struct {
	Channels []fileChannel `yaml:"channels"`
}

type userKey struct {
	tenant string
	userID string
}

// Resolver is an immutable, in-memory ChannelRepository.
type Resolver struct {
	channels map[userKey][]entity.Channel
}

var _ repository.ChannelRepository = (*Resolver)(nil)

// Load reads and parses the channel file at path.
func Load(path string) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read channel file: %w", err)
	}
	return Parse(data)
}

// Parse builds a Resolver from YAML. Channels without an explicit
// "enabled" key are enabled. Channel IDs must be unique per tenant.
func Parse(data []byte) (*Resolver, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	r := &Resolver{channels: make(map[userKey][]entity.Channel)}
	seen := make(map[string]struct{}, len(f.Channels))

	for i, c := range f.Channels {
		if c.Tenant == "" || c.UserID == "" || c.ID == "" || c.Type == "" {
			return nil, fmt.Errorf("%w: channel #%d requires tenant, userId, id and type", ErrInvalidFile, i)
		}
		idKey := c.Tenant + "/" + c.ID
		if _, dup := seen[idKey]; dup {
			return nil, fmt.Errorf("%w: duplicate channel id %q in tenant %q", ErrInvalidFile, c.ID, c.Tenant)
		}
		seen[idKey] = struct{}{}

		if c.Enabled != nil && !*c.Enabled {
			continue
		}

		key := userKey{tenant: c.Tenant, userID: c.UserID}
		r.channels[key] = append(r.channels[key], entity.Channel{
			ID:        c.ID,
			Type:      entity.ChannelType(c.Type),
			Config:    entity.ChannelConfig(c.Config),
			IsDefault: c.IsDefault,
		})
	}

	// Default channels first, file order otherwise.
	for _, list := range r.channels {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].IsDefault && !list[j].IsDefault
		})
	}
	return r, nil
}

// ResolveChannels returns the enabled channels of userID. The returned slice
// is a copy and may be modified by the caller.
func (r *Resolver) ResolveChannels(ctx context.Context, tenant, userID string) ([]entity.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	list := r.channels[userKey{tenant: tenant, userID: userID}]
	out := make([]entity.Channel, len(list))
	copy(out, list)
	return out, nil
}

// Len returns the number of enabled channels across all users.
func (r *Resolver) Len() int {
	n := 0
	for _, list := range r.channels {
		n += len(list)
	}
	return n
}
