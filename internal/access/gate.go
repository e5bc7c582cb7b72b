// Package access gates every inbound event against a file-backed allow-list.
// The list can change without a process restart: the gate re-reads the file
// when its mtime changes or a bounded cache window expires.
package access

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const cacheWindow = 30 * time.Second

// Gate answers IsAuthorized for inbound chat ids and usernames.
type Gate struct {
	path string
	log  *zap.Logger

	mu       sync.Mutex
	list     *List
	loadedAt time.Time
	modTime  time.Time
	everRead bool
}

// NewGate creates a gate over the allow-list file at path. The file is read
// lazily on the first authorization check.
func NewGate(path string, log *zap.Logger) *Gate {
	return &Gate{path: path, log: log}
}

// IsAuthorized reports whether the chat id or username is on the allow-list.
// A list that was never successfully read denies everyone.
func (g *Gate) IsAuthorized(chatID int64, username string) bool {
	g.mu.Lock()
	g.refreshLocked()
	list := g.list
	g.mu.Unlock()

	if list == nil {
		return false
	}
	if list.HasID(chatID) {
		return true
	}
	return username != "" && list.HasUsername(username)
}

// refreshLocked re-reads the file when due. A read failure keeps the last
// good list so a transient I/O error does not lock existing users out.
func (g *Gate) refreshLocked() {
	now := time.Now()
	if g.everRead && now.Sub(g.loadedAt) < cacheWindow {
		return
	}

	list, modTime, err := LoadList(g.path)
	if err != nil {
		g.log.Error("allow-list read failed", zap.String("path", g.path), zap.Error(err))
		g.loadedAt = now // back off for a window instead of hammering the disk
		return
	}
	if g.everRead && modTime.Equal(g.modTime) {
		g.loadedAt = now
		return
	}

	g.list = list
	g.modTime = modTime
	g.loadedAt = now
	g.everRead = true
	g.log.Info("allow-list loaded",
		zap.Int("ids", len(list.IDs)),
		zap.Int("usernames", len(list.Usernames)),
	)
}

// HasID reports membership by chat id.
func (l *List) HasID(id int64) bool {
	for _, v := range l.IDs {
		if v == id {
			return true
		}
	}
	return false
}

// HasUsername reports membership by username, case-insensitively.
func (l *List) HasUsername(name string) bool {
	name = strings.ToLower(strings.TrimPrefix(name, "@"))
	for _, v := range l.Usernames {
		if v == name {
			return true
		}
	}
	return false
}
