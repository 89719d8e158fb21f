package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/poiesic/jobfeed/core"
	"github.com/poiesic/jobfeed/storage"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key written by the repository.
const DefaultKeyPrefix = "jobfeed"

// recordScript dedupes, counts and appends in one atomic step.
// KEYS: seen, count, history. ARGV: candidate id, window, encoded vector (may be empty).
var recordScript = redis.NewScript(`
if redis.call('SADD', KEYS[1], ARGV[1]) == 0 then
	return {tonumber(redis.call('GET', KEYS[2]) or '0'), 1}
end
local count = redis.call('INCR', KEYS[2])
if ARGV[3] ~= '' then
	redis.call('LPUSH', KEYS[3], ARGV[3])
	redis.call('LTRIM', KEYS[3], 0, tonumber(ARGV[2]) - 1)
end
return {count, 0}
`)

// InteractionRepository implements storage.InteractionRepository on Redis.
type InteractionRepository struct {
	client    redis.UniversalClient
	prefix    string
	ownClient bool
}

var _ storage.InteractionRepository = (*InteractionRepository)(nil)

// Connect dials Redis, verifies the connection and returns a repository that
// closes the client on Close.
func Connect(ctx context.Context, addr, password string, db int, prefix string) (*InteractionRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	repo := NewInteractionRepository(client, prefix)
	repo.ownClient = true
	return repo, nil
}

// NewInteractionRepository wraps an existing client. The caller keeps ownership.
func NewInteractionRepository(client redis.UniversalClient, prefix string) *InteractionRepository {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &InteractionRepository{client: client, prefix: prefix}
}

// Close closes the client if the repository opened it.
func (r *InteractionRepository) Close() error {
	if r.ownClient {
		return r.client.Close()
	}
	return nil
}

// Ping checks connectivity.
func (r *InteractionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *InteractionRepository) key(profileID core.ID, kind string) string {
	return r.prefix + ":profile:" + profileID.String() + ":" + kind
}

// RecordInteraction records a positive interaction.
func (r *InteractionRepository) RecordInteraction(ctx context.Context, interaction *core.Interaction, window int) (core.RecordResult, error) {
	var result core.RecordResult
	if window < 1 {
		return result, storage.ErrInvalidQuery
	}

	var encoded []byte
	if len(interaction.Vector) > 0 {
		var err error
		encoded, err = storage.Marshal(interaction.Vector)
		if err != nil {
			return result, err
		}
	}

	keys := []string{
		r.key(interaction.ProfileId, "seen"),
		r.key(interaction.ProfileId, "count"),
		r.key(interaction.ProfileId, "history"),
	}
	reply, err := recordScript.Run(ctx, r.client, keys, interaction.CandidateId.String(), window, encoded).Int64Slice()
	if err != nil {
		return result, fmt.Errorf("failed to record interaction: %w", err)
	}
	if len(reply) != 2 {
		return result, fmt.Errorf("%w: unexpected script reply %v", storage.ErrSerializationFailed, reply)
	}
	return core.RecordResult{Count: reply[0], Duplicate: reply[1] == 1}, nil
}

// RecentVectors returns up to n history vectors, most recent first.
// A negative n returns the whole history.
func (r *InteractionRepository) RecentVectors(ctx context.Context, profileID core.ID, n int) ([][]float32, error) {
	if n == 0 {
		return nil, nil
	}
	stop := int64(n - 1)
	if n < 0 {
		stop = -1
	}
	raw, err := r.client.LRange(ctx, r.key(profileID, "history"), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	history := make([][]float32, 0, len(raw))
	for _, entry := range raw {
		var v []float32
		if err := storage.Unmarshal([]byte(entry), &v); err != nil {
			return nil, err
		}
		history = append(history, v)
	}
	return history, nil
}

// InteractedCandidates returns the recorded candidate IDs in no particular order.
func (r *InteractionRepository) InteractedCandidates(ctx context.Context, profileID core.ID) ([]core.ID, error) {
	members, err := r.client.SMembers(ctx, r.key(profileID, "seen")).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]core.ID, 0, len(members))
	for _, m := range members {
		id, err := core.ParseID(m)
		if err != nil {
			return nil, fmt.Errorf("%w: bad candidate id %q", storage.ErrSerializationFailed, m)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// InteractionCount returns the profile's positive-interaction counter.
func (r *InteractionRepository) InteractionCount(ctx context.Context, profileID core.ID) (int64, error) {
	count, err := r.client.Get(ctx, r.key(profileID, "count")).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return count, err
}
