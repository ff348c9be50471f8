package repository

import "errors"

var (
	// 行が無い
	ErrNotFound = errors.New("not found")
	// 一意制約違反
	ErrConflict = errors.New("conflict")
)
