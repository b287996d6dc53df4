package dummydb

import (
	"sync"

	"github.com/trezcool/ecole/core/course"
	"github.com/trezcool/ecole/core/user"
)

type (
	DB struct {
		user   *userTable
		course *courseTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		rows   []*course.Course          // insertion order
		byCode map[string]*course.Course // join code index
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:   &userTable{table: make(map[string]*user.User)},
		course: &courseTable{byCode: make(map[string]*course.Course)},
	}
	return db, nil
}

// Reset empties every table.
func (db *DB) Reset() {
	db.user.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.Unlock()

	db.course.Lock()
	db.course.rows = nil
	db.course.byCode = make(map[string]*course.Course)
	db.course.Unlock()
}
