//go:build sqlite_vec && cgo

package store

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Registers sqlite-vec with mattn/go-sqlite3 so vec_distance_cosine is available.
	vec.Auto()
}
