// Package repository holds the storage layer: gorm repositories for durable records and
// in-memory stores for sessions, guest results and chat history.
package repository

import (
	"errors"

	"gorm.io/gorm"
)

// first runs q into a new T. A missing row yields (nil, nil).
func first[T any](q *gorm.DB, conds ...any) (*T, error) {
	var row T
	if err := q.First(&row, conds...).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
