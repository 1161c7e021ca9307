package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each fact in a hash and ranks ids by interesting votes in
// one sorted set for the whole board plus one per category.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisStoreWithClient(client), nil
}

func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "factboard:",
		now:    time.Now,
	}
}

func (s *RedisStore) factKey(id int64) string {
	return s.prefix + "fact:" + strconv.FormatInt(id, 10)
}

func (s *RedisStore) rankKey(categoryName string) string {
	if categoryName == "" {
		return s.prefix + "rank"
	}
	return s.prefix + "rank:" + categoryName
}

func (s *RedisStore) seqKey() string {
	return s.prefix + "seq"
}

func (s *RedisStore) FetchFacts(ctx context.Context, q FactQuery) ([]Fact, error) {
	key := s.rankKey("")
	if q.Filtered() {
		key = s.rankKey(q.Category)
	}
	ids, err := s.rankedIDs(ctx, key, q.EffectiveLimit())
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Fact{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.factKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load facts: %w", err)
	}

	items := make([]Fact, 0, len(ids))
	for _, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		item, err := decodeFact(fields)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].VotesInteresting != items[j].VotesInteresting {
			return items[i].VotesInteresting > items[j].VotesInteresting
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

// rankedIDs returns up to limit ids from the ranking key ordered by score
// descending, then id ascending. ZREVRANGE breaks score ties by member in
// reverse byte order, so every member tied at the cut-off score is loaded
// before the list is trimmed.
func (s *RedisStore) rankedIDs(ctx context.Context, key string, limit int) ([]int64, error) {
	top, err := s.client.ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list fact ids: %w", err)
	}
	ranked := top
	if len(top) == limit {
		boundary := top[len(top)-1].Score
		bound := strconv.FormatFloat(boundary, 'f', -1, 64)
		tied, err := s.client.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{Min: bound, Max: bound}).Result()
		if err != nil {
			return nil, fmt.Errorf("list tied fact ids: %w", err)
		}
		ranked = make([]redis.Z, 0, len(top)+len(tied))
		for _, z := range top {
			if z.Score > boundary {
				ranked = append(ranked, z)
			}
		}
		ranked = append(ranked, tied...)
	}

	type scored struct {
		id    int64
		score float64
	}
	entries := make([]scored, 0, len(ranked))
	for _, z := range ranked {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode ranked id %q: %w", member, err)
		}
		entries = append(entries, scored{id: id, score: z.Score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].id < entries[j].id
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids, nil
}

// FactsAfter walks the id sequence, so ids that were never written or have
// been removed are skipped.
func (s *RedisStore) FactsAfter(ctx context.Context, afterID int64, size int) ([]Fact, error) {
	items := []Fact{}
	if size <= 0 {
		return items, nil
	}
	last, err := s.client.Get(ctx, s.seqKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return items, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read fact sequence: %w", err)
	}

	for next := afterID + 1; next <= last && len(items) < size; {
		end := min(next+int64(size-len(items))-1, last)
		pipe := s.client.Pipeline()
		cmds := make([]*redis.MapStringStringCmd, 0, end-next+1)
		for id := next; id <= end; id++ {
			cmds = append(cmds, pipe.HGetAll(ctx, s.factKey(id)))
		}
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("page facts: %w", err)
		}
		for _, cmd := range cmds {
			fields, err := cmd.Result()
			if err != nil || len(fields) == 0 {
				continue
			}
			item, err := decodeFact(fields)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		next = end + 1
	}
	return items, nil
}

func (s *RedisStore) InsertFact(ctx context.Context, item NewFact) (Fact, error) {
	id, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return Fact{}, fmt.Errorf("allocate fact id: %w", err)
	}

	created := Fact{
		ID:        id,
		Text:      item.Text,
		Source:    item.Source,
		Category:  item.Category,
		CreatedAt: s.now().UTC(),
	}
	member := strconv.FormatInt(id, 10)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.factKey(id), encodeFact(created))
		pipe.ZAdd(ctx, s.rankKey(""), redis.Z{Score: 0, Member: member})
		pipe.ZAdd(ctx, s.rankKey(created.Category), redis.Z{Score: 0, Member: member})
		return nil
	})
	if err != nil {
		return Fact{}, fmt.Errorf("insert fact: %w", err)
	}
	return created, nil
}

// IncrementVote relies on HINCRBY so increments from concurrent clients are
// never lost, then reads the hash back as the confirmed row.
func (s *RedisStore) IncrementVote(ctx context.Context, id int64, column VoteColumn) (Fact, error) {
	if !column.Valid() {
		return Fact{}, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	key := s.factKey(id)
	categoryName, err := s.client.HGet(ctx, key, "category").Result()
	if errors.Is(err, redis.Nil) {
		return Fact{}, ErrNotFound
	}
	if err != nil {
		return Fact{}, fmt.Errorf("lookup fact: %w", err)
	}

	member := strconv.FormatInt(id, 10)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, string(column), 1)
		if column == VotesInteresting {
			pipe.ZIncrBy(ctx, s.rankKey(""), 1, member)
			pipe.ZIncrBy(ctx, s.rankKey(categoryName), 1, member)
		}
		return nil
	})
	if err != nil {
		return Fact{}, fmt.Errorf("increment %s: %w", column, err)
	}

	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return Fact{}, fmt.Errorf("read fact: %w", err)
	}
	if len(fields) == 0 {
		return Fact{}, ErrNotFound
	}
	return decodeFact(fields)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func encodeFact(item Fact) map[string]any {
	return map[string]any{
		"id":                     item.ID,
		"text":                   item.Text,
		"source":                 item.Source,
		"category":               item.Category,
		string(VotesInteresting): item.VotesInteresting,
		string(VotesMindblowing): item.VotesMindblowing,
		string(VotesFalse):       item.VotesFalse,
		"createdAt":              item.CreatedAt.Format(time.RFC3339Nano),
	}
}

func decodeFact(fields map[string]string) (Fact, error) {
	var (
		item Fact
		err  error
	)
	if item.ID, err = strconv.ParseInt(fields["id"], 10, 64); err != nil {
		return Fact{}, fmt.Errorf("decode fact id: %w", err)
	}
	item.Text = fields["text"]
	item.Source = fields["source"]
	item.Category = fields["category"]
	counters := []struct {
		column VoteColumn
		dst    *int
	}{
		{VotesInteresting, &item.VotesInteresting},
		{VotesMindblowing, &item.VotesMindblowing},
		{VotesFalse, &item.VotesFalse},
	}
	for _, c := range counters {
		raw, ok := fields[string(c.column)]
		if !ok {
			continue
		}
		if *c.dst, err = strconv.Atoi(raw); err != nil {
			return Fact{}, fmt.Errorf("decode fact %d %s: %w", item.ID, c.column, err)
		}
	}
	if raw := fields["createdAt"]; raw != "" {
		if item.CreatedAt, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return Fact{}, fmt.Errorf("decode fact %d createdAt: %w", item.ID, err)
		}
	}
	return item, nil
}
