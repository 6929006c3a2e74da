package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// QueryRecorder 接收 SQL 耗时，metrics.Collector 实现该接口
type QueryRecorder interface {
	RecordDBQuery(database, operation string, duration time.Duration)
}

const startKey = "researchflow:query_start"

// Instrument 为 gorm 的增删改查回调注册耗时记录
func Instrument(db *gorm.DB, name string, recorder QueryRecorder) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(startKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(startKey)
			if !ok {
				return
			}
			if start, ok := v.(time.Time); ok {
				recorder.RecordDBQuery(name, operation, time.Since(start))
			}
		}
	}

	cb := db.Callback()
	steps := []struct {
		operation string
		before    error
		after     error
	}{
		{"create",
			cb.Create().Before("gorm:create").Register("researchflow:before_create", before),
			cb.Create().After("gorm:create").Register("researchflow:after_create", after("create"))},
		{"query",
			cb.Query().Before("gorm:query").Register("researchflow:before_query", before),
			cb.Query().After("gorm:query").Register("researchflow:after_query", after("query"))},
		{"update",
			cb.Update().Before("gorm:update").Register("researchflow:before_update", before),
			cb.Update().After("gorm:update").Register("researchflow:after_update", after("update"))},
		{"delete",
			cb.Delete().Before("gorm:delete").Register("researchflow:before_delete", before),
			cb.Delete().After("gorm:delete").Register("researchflow:after_delete", after("delete"))},
		{"raw",
			cb.Raw().Before("gorm:raw").Register("researchflow:before_raw", before),
			cb.Raw().After("gorm:raw").Register("researchflow:after_raw", after("raw"))},
	}
	for _, s := range steps {
		if s.before != nil {
			return fmt.Errorf("register %s callback: %w", s.operation, s.before)
		}
		if s.after != nil {
			return fmt.Errorf("register %s callback: %w", s.operation, s.after)
		}
	}
	return nil
}
