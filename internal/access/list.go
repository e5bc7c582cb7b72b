package access

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// List is the parsed allow-list: numeric chat ids plus lowercase usernames.
type List struct {
	IDs       []int64
	Usernames []string
}

// LoadList parses the allow-list file: one entry per line, either a numeric
// chat id or a username (with or without a leading @); blank lines and lines
// starting with # are skipped. Returns the file's mtime for change detection.
func LoadList(path string) (*List, time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, time.Time{}, err
	}

	list := &List{}
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if id, err := strconv.ParseInt(line, 10, 64); err == nil {
			list.IDs = append(list.IDs, id)
			continue
		}
		name, err := NormalizeUsername(line)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("line %d: %w", lineNo, err)
		}
		list.Usernames = append(list.Usernames, name)
	}
	if err := sc.Err(); err != nil {
		return nil, time.Time{}, err
	}
	return list, info.ModTime(), nil
}

// SaveList writes the list back in the same line-oriented format.
func SaveList(path string, list *List) error {
	var b strings.Builder
	b.WriteString("# Allowed users: one chat id or @username per line.\n")
	for _, id := range list.IDs {
		fmt.Fprintf(&b, "%d\n", id)
	}
	for _, name := range list.Usernames {
		fmt.Fprintf(&b, "@%s\n", name)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// NormalizeUsername strips a leading @, lowercases, and validates the result
// against Telegram's username rules (5-32 chars, alphanumeric plus underscore).
func NormalizeUsername(s string) (string, error) {
	s = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "@"))
	if len(s) < 5 || len(s) > 32 {
		return "", fmt.Errorf("invalid username %q: must be 5-32 characters", s)
	}
	for _, r := range s {
		if r != '_' && (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("invalid username %q: letters, digits and _ only", s)
		}
	}
	return s, nil
}
