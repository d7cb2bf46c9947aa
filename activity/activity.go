// Copyright (c) 2024 The Data Catalog Service Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package activity

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/datahubio/dcs/config"
)

// This is the catalog activity log, which records all catalog changes. The
// log is a table of events (one per change) kept in a sqlite database under
// the service's data directory.

// activity types recorded by the catalog
const (
	TypeNewPackage      = "new package"
	TypeDeletedPackage  = "deleted package"
	TypeNewOrganization = "new organization"
)

// an event recording a single catalog change
type Event struct {
	// UUID associated with the event (assigned on Record if zero)
	Id uuid.UUID `json:"id"`
	// time at which the event occurred (assigned on Record if zero)
	Timestamp time.Time `json:"timestamp"`
	// the acting user ("" for anonymous calls)
	User string `json:"user"`
	// the kind of change ("new package", "deleted package", "new organization")
	Type string `json:"activity_type"`
	// id and name of the object that changed
	ObjectId   string `json:"object_id"`
	ObjectName string `json:"object_name"`
}

// sqlite connections are not safe for concurrent use, so all access to the
// log goes through this guarded state
var state_ struct {
	sync.Mutex
	Conn *sqlite.Conn
}

// initializes the activity log, creating its schema if necessary
func Init() error {
	state_.Lock()
	defer state_.Unlock()
	if state_.Conn != nil {
		return nil
	}

	dbPath := filepath.Join(config.Service.DataDirectory, "activity.db")
	conn, err := sqlite.OpenConn(dbPath,
		sqlite.OpenReadWrite|sqlite.OpenCreate|sqlite.OpenWAL)
	if err != nil {
		return &CantOpenError{Message: err.Error()}
	}

	err = sqlitex.ExecuteTransient(conn,
		`CREATE TABLE IF NOT EXISTS activities (
			id TEXT PRIMARY KEY,
			timestamp TEXT NOT NULL,
			user_id TEXT,
			activity_type TEXT NOT NULL,
			object_id TEXT,
			object_name TEXT
		)`, nil)
	if err != nil {
		conn.Close()
		return &CantOpenError{Message: err.Error()}
	}

	state_.Conn = conn
	return nil
}

// saves and closes the activity log (if it's been opened)
func Finalize() error {
	state_.Lock()
	defer state_.Unlock()
	if state_.Conn == nil {
		return nil
	}
	err := state_.Conn.Close()
	state_.Conn = nil
	if err != nil {
		return &CantCloseError{Message: err.Error()}
	}
	return nil
}

// returns true if the log is open for writing, false if not
func IsOpen() bool {
	state_.Lock()
	defer state_.Unlock()
	return state_.Conn != nil
}

// records a catalog change
// event: the event describing the change
func Record(event Event) error {
	switch event.Type {
	case TypeNewPackage, TypeDeletedPackage, TypeNewOrganization:
		// pass-through (see below)
	default:
		return &InvalidEventError{Type: event.Type}
	}

	if event.Id == uuid.Nil {
		event.Id = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	state_.Lock()
	defer state_.Unlock()
	if state_.Conn == nil {
		return &NotOpenError{}
	}

	return sqlitex.Execute(state_.Conn,
		`INSERT INTO activities
			(id, timestamp, user_id, activity_type, object_id, object_name)
			VALUES (?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				event.Id.String(),
				event.Timestamp.UTC().Format(time.RFC3339),
				event.User,
				event.Type,
				event.ObjectId,
				event.ObjectName,
			},
		})
}

// retrieves events that occurred within the time range with the given
// (inclusive) bounds
// start: the beginning of the time period of interest
// stop: the end of the time period of interest
func Events(start, stop time.Time) ([]Event, error) {
	state_.Lock()
	defer state_.Unlock()
	if state_.Conn == nil {
		return nil, &NotOpenError{}
	}

	events := make([]Event, 0)
	err := sqlitex.Execute(state_.Conn,
		`SELECT id, timestamp, user_id, activity_type, object_id, object_name
			FROM activities WHERE timestamp >= ? AND timestamp <= ?
			ORDER BY timestamp, rowid`,
		&sqlitex.ExecOptions{
			Args: []any{
				start.UTC().Format(time.RFC3339),
				stop.UTC().Format(time.RFC3339),
			},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				id, err := uuid.Parse(stmt.ColumnText(0))
				if err != nil {
					return &InvalidEventError{Type: stmt.ColumnText(3)}
				}
				timestamp, err := time.Parse(time.RFC3339, stmt.ColumnText(1))
				if err != nil {
					return &InvalidEventError{Type: stmt.ColumnText(3)}
				}
				events = append(events, Event{
					Id:         id,
					Timestamp:  timestamp,
					User:       stmt.ColumnText(2),
					Type:       stmt.ColumnText(3),
					ObjectId:   stmt.ColumnText(4),
					ObjectName: stmt.ColumnText(5),
				})
				return nil
			},
		})
	return events, err
}
