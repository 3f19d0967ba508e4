package counter

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/ChurchDesk/internal/pkg/apperror"
)

const outcomesKey = "guard:counters:outcomes"

// drainScript moves the hash to KEYS[2] and returns 1, or returns 0 when
// nothing has been counted yet.
var drainScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("RENAME", KEYS[1], KEYS[2])
return 1
`)

// Count is the number of guarded requests on a route that ended with Kind.
type Count struct {
	Route string `json:"route"`
	Kind  string `json:"kind"`
	Count int64  `json:"count"`
}

// Outcomes keeps per-route outcome counters in a Redis hash. A nil Outcomes
// counts nothing.
type Outcomes struct {
	rdb *redis.Client
	key string
}

func NewOutcomes(rdb *redis.Client) *Outcomes {
	if rdb == nil {
		return nil
	}
	return &Outcomes{rdb: rdb, key: outcomesKey}
}

func field(route string, kind apperror.Kind) string {
	if kind == "" {
		kind = "ok"
	}
	return route + "|" + string(kind)
}

// Observe increments the counter for route and kind.
func (o *Outcomes) Observe(ctx context.Context, route string, kind apperror.Kind) error {
	if o == nil {
		return nil
	}
	return o.rdb.HIncrBy(ctx, o.key, field(route, kind), 1).Err()
}

// Snapshot returns all counters ordered by route, then kind.
func (o *Outcomes) Snapshot(ctx context.Context) ([]Count, error) {
	if o == nil {
		return []Count{}, nil
	}
	data, err := o.rdb.HGetAll(ctx, o.key).Result()
	if err != nil {
		return nil, err
	}
	return parse(data), nil
}

// Drain returns the counters and resets them. The hash is renamed to a
// temporary key first so increments that land during the drain are kept.
func (o *Outcomes) Drain(ctx context.Context) ([]Count, error) {
	if o == nil {
		return []Count{}, nil
	}
	tmpKey := o.key + ":draining"
	moved, err := drainScript.Run(ctx, o.rdb, []string{o.key, tmpKey}).Int()
	if err != nil {
		return nil, err
	}
	if moved == 0 {
		return []Count{}, nil
	}
	defer o.rdb.Del(ctx, tmpKey)

	data, err := o.rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return nil, err
	}
	return parse(data), nil
}

func parse(data map[string]string) []Count {
	counts := make([]Count, 0, len(data))
	for k, v := range data {
		route, kind, ok := strings.Cut(k, "|")
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n == 0 {
			continue
		}
		counts = append(counts, Count{Route: route, Kind: kind, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Route != counts[j].Route {
			return counts[i].Route < counts[j].Route
		}
		return counts[i].Kind < counts[j].Kind
	})
	return counts
}
