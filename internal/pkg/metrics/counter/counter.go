// Package counter buffers high frequency report counters in Redis and
// periodically folds them into the database in one batched UPDATE.
package counter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ManuelReschke/TazaQala/internal/pkg/cache"
	"github.com/ManuelReschke/TazaQala/internal/pkg/database"
)

const reportViewsKey = "report:counters:views"

// AddReportView increments the pending view counter for a report in Redis
func AddReportView(reportID uint) error {
	return AddView(context.Background(), cache.GetClient(), reportID)
}

// AddView is AddReportView against an explicit client.
func AddView(ctx context.Context, rdb redis.Cmdable, reportID uint) error {
	field := strconv.FormatUint(uint64(reportID), 10)
	return rdb.HIncrBy(ctx, reportViewsKey, field, 1).Err()
}

// FlushAll flushes buffered counters using the shared cache and database
func FlushAll() error {
	return Flush(context.Background(), cache.GetClient(), database.GetDB())
}

// Flush drains every buffered counter into db.
func Flush(ctx context.Context, rdb redis.Cmdable, db *gorm.DB) error {
	return flushHashToTable(ctx, rdb, db, reportViewsKey, "reports", "views_count")
}

type increment struct {
	id  uint64
	inc int64
}

// flushHashToTable drains a Redis hash and applies its increments to table.
// The hash is renamed first so that views arriving during the flush land
// in a fresh hash instead of being lost.
func flushHashToTable(ctx context.Context, rdb redis.Cmdable, db *gorm.DB, redisKey, table, column string) error {
	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := rdb.Rename(ctx, redisKey, tmpKey).Err(); err != nil {
		if errors.Is(err, redis.Nil) || strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		return err
	}
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}
	pairs := parseIncrements(data)
	if len(pairs) == 0 {
		return nil
	}

	sql, args := incrementSQL(table, column, pairs)
	return db.WithContext(ctx).Exec(sql, args...).Error
}

// parseIncrements keeps well formed, non-zero entries sorted by id.
func parseIncrements(data map[string]string) []increment {
	pairs := make([]increment, 0, len(data))
	for k, v := range data {
		id, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			continue
		}
		inc, err := strconv.ParseInt(v, 10, 64)
		if err != nil || inc == 0 {
			continue
		}
		pairs = append(pairs, increment{id: id, inc: inc})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].id < pairs[j].id })
	return pairs
}

// incrementSQL builds
// UPDATE t SET c = c + CASE id WHEN ? THEN ? ... END WHERE id IN (...)
func incrementSQL(table, column string, pairs []increment) (string, []interface{}) {
	var b strings.Builder
	args := make([]interface{}, 0, len(pairs)*3)
	fmt.Fprintf(&b, "UPDATE %s SET %s = %s + CASE id", table, column, column)
	for _, p := range pairs {
		b.WriteString(" WHEN ? THEN ?")
		args = append(args, p.id, p.inc)
	}
	b.WriteString(" END WHERE id IN (")
	for i, p := range pairs {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
		args = append(args, p.id)
	}
	b.WriteString(")")
	return b.String(), args
}
