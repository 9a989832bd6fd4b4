package search

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"github.com/tutorbook/tutorbook/pkg/timeslot"
)

// RedisWindowStore keeps one sorted set per person, scored by window start with
// "from:to" members, and a set of the people that have any window.
type RedisWindowStore struct {
	client *redis.Client
	prefix string
}

func NewRedisWindowStore(client *redis.Client, prefix string) *RedisWindowStore {
	return &RedisWindowStore{client: client, prefix: prefix}
}

func (s *RedisWindowStore) windowsKey(personId int) string {
	return fmt.Sprintf("%s:windows:%d", s.prefix, personId)
}

func (s *RedisWindowStore) peopleKey() string {
	return s.prefix + ":people"
}

func (s *RedisWindowStore) Replace(ctx context.Context, personId int, windows []timeslot.Window) error {
	key := s.windowsKey(personId)
	members := make([]*redis.Z, 0, len(windows))
	for _, w := range windows {
		members = append(members, &redis.Z{Score: float64(w.From), Member: encodeWindow(w)})
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(members) == 0 {
			pipe.SRem(ctx, s.peopleKey(), personId)
			return nil
		}
		pipe.ZAdd(ctx, key, members...)
		pipe.SAdd(ctx, s.peopleKey(), personId)
		return nil
	})
	if err != nil {
		log.Errorf("failed to store %d windows of person %d: %v", len(windows), personId, err)
		return err
	}
	return nil
}

func (s *RedisWindowStore) Windows(ctx context.Context, personId int) ([]timeslot.Window, error) {
	members, err := s.client.ZRangeByScore(ctx, s.windowsKey(personId), &redis.ZRangeBy{Min: "-inf", Max: "+inf"}).Result()
	if err != nil {
		return nil, err
	}
	windows := make([]timeslot.Window, 0, len(members))
	for _, member := range members {
		w, err := decodeWindow(member)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, nil
}

func (s *RedisWindowStore) PeopleAvailable(ctx context.Context, from, to time.Time) ([]int, error) {
	people, err := s.client.SMembers(ctx, s.peopleKey()).Result()
	if err != nil {
		return nil, err
	}
	fromMs, toMs := from.UnixMilli(), to.UnixMilli()

	var available []int
	for _, member := range people {
		personId, err := strconv.Atoi(member)
		if err != nil {
			log.Warnf("skipping malformed person %q in %s", member, s.peopleKey())
			continue
		}
		// windows are disjoint, so only the last one starting at or before from can cover the range
		last, err := s.client.ZRevRangeByScore(ctx, s.windowsKey(personId), &redis.ZRangeBy{
			Min:   "-inf",
			Max:   strconv.FormatInt(fromMs, 10),
			Count: 1,
		}).Result()
		if err != nil {
			return nil, err
		}
		if len(last) == 0 {
			continue
		}
		w, err := decodeWindow(last[0])
		if err != nil {
			return nil, err
		}
		if covers(w, fromMs, toMs) {
			available = append(available, personId)
		}
	}
	slices.Sort(available)
	return available, nil
}

func encodeWindow(w timeslot.Window) string {
	return strconv.FormatInt(w.From, 10) + ":" + strconv.FormatInt(w.To, 10)
}

func decodeWindow(member string) (timeslot.Window, error) {
	from, to, ok := strings.Cut(member, ":")
	if !ok {
		return timeslot.Window{}, fmt.Errorf("malformed window %q", member)
	}
	var w timeslot.Window
	var err error
	if w.From, err = strconv.ParseInt(from, 10, 64); err != nil {
		return timeslot.Window{}, fmt.Errorf("malformed window %q: %w", member, err)
	}
	if w.To, err = strconv.ParseInt(to, 10, 64); err != nil {
		return timeslot.Window{}, fmt.Errorf("malformed window %q: %w", member, err)
	}
	return w, nil
}
