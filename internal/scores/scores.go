// internal/scores/scores.go
package scores

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jason-s-yu/boardshow/engine"
)

// Delimiter separates the fields of a score row.
const Delimiter = "#"

var (
	ErrMalformedRecord = errors.New("malformed score record")
	ErrNotFound        = errors.New("player not found")
)

// Record is one persisted score row: {id}#{name}#{money}#{booster}#{winStreak}.
type Record struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Money     int       `json:"money"`
	Booster   int       `json:"booster"`
	WinStreak int       `json:"winStreak"` // tenths, 15 == x1.5
}

// FromPlayer captures a player's persistent economy.
func FromPlayer(p *engine.Player) Record {
	return Record{ID: p.ID, Name: p.Name, Money: p.Money, Booster: p.Booster, WinStreak: p.WinStreak}
}

// Parse reads a single row.
func Parse(line string) (Record, error) {
	f := strings.Split(strings.TrimSpace(line), Delimiter)
	if len(f) != 5 {
		return Record{}, fmt.Errorf("%q: want 5 fields, got %d: %w", line, len(f), ErrMalformedRecord)
	}
	id, err := uuid.Parse(f[0])
	if err != nil {
		return Record{}, fmt.Errorf("%q: id: %w", line, ErrMalformedRecord)
	}
	var nums [3]int
	for i, s := range f[2:] {
		if nums[i], err = strconv.Atoi(s); err != nil {
			return Record{}, fmt.Errorf("%q: field %d: %w", line, i+3, ErrMalformedRecord)
		}
	}
	return Record{ID: id, Name: f[1], Money: nums[0], Booster: nums[1], WinStreak: nums[2]}, nil
}

// String renders the row. Names containing the delimiter have it stripped.
func (r Record) String() string {
	name := strings.ReplaceAll(r.Name, Delimiter, "")
	return strings.Join([]string{r.ID.String(), name, strconv.Itoa(r.Money), strconv.Itoa(r.Booster), strconv.Itoa(r.WinStreak)}, Delimiter)
}

// Sort orders records by money, richest first. Ties keep their order.
func Sort(list []Record) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Money > list[j].Money })
}

// Find resolves a rank query against a list sorted by Sort. An empty query
// means self; "#N" is the Nth rank; otherwise the query is tried as a player
// id and then as a case-insensitive name. The returned rank is 1-based.
func Find(list []Record, query string, self uuid.UUID) (int, Record, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		query = self.String()
	}
	if strings.HasPrefix(query, "#") {
		n, err := strconv.Atoi(query[1:])
		if err != nil || n < 1 || n > len(list) {
			return 0, Record{}, fmt.Errorf("rank %s: %w", query, ErrNotFound)
		}
		return n, list[n-1], nil
	}
	if id, err := uuid.Parse(strings.Trim(query, "<@!>")); err == nil {
		for i, r := range list {
			if r.ID == id {
				return i + 1, r, nil
			}
		}
		return 0, Record{}, fmt.Errorf("id %s: %w", id, ErrNotFound)
	}
	for i, r := range list {
		if strings.EqualFold(r.Name, query) {
			return i + 1, r, nil
		}
	}
	return 0, Record{}, fmt.Errorf("name %q: %w", query, ErrNotFound)
}

// FormatRank renders "Name: $1,234 [150%x1.5] - Rank #1/10".
func FormatRank(r Record, rank, total int) string {
	return fmt.Sprintf("%s: %s [%d%%x%d.%d] - Rank #%d/%d",
		r.Name, engine.FormatMoney(r.Money), r.Booster, r.WinStreak/10, r.WinStreak%10, rank, total)
}

// FileSource stores one channel's rows in a flat file.
type FileSource struct {
	Path string
}

// NewFileSource returns a source for channel under dir.
func NewFileSource(dir, channel string) *FileSource {
	return &FileSource{Path: filepath.Join(dir, "scores"+channel+".csv")}
}

// Load reads every row. A missing file is an empty list. Malformed rows are skipped.
func (s *FileSource) Load(_ context.Context) ([]Record, error) {
	f, err := os.Open(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open scores: %w", err)
	}
	defer f.Close()

	var out []Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		r, err := Parse(sc.Text())
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, sc.Err()
}

// Lookup returns the row for id.
func (s *FileSource) Lookup(ctx context.Context, id uuid.UUID) (Record, bool, error) {
	list, err := s.Load(ctx)
	if err != nil {
		return Record{}, false, err
	}
	for _, r := range list {
		if r.ID == id {
			return r, true, nil
		}
	}
	return Record{}, false, nil
}

// Save merges recs into the file, replacing rows with the same id, and
// rewrites it sorted by money.
func (s *FileSource) Save(ctx context.Context, recs []Record) error {
	list, err := s.Load(ctx)
	if err != nil {
		return err
	}
	idx := make(map[uuid.UUID]int, len(list))
	for i, r := range list {
		idx[r.ID] = i
	}
	for _, r := range recs {
		if i, ok := idx[r.ID]; ok {
			list[i] = r
			continue
		}
		idx[r.ID] = len(list)
		list = append(list, r)
	}
	Sort(list)

	var b strings.Builder
	for _, r := range list {
		b.WriteString(r.String())
		b.WriteByte('\n')
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("scores dir: %w", err)
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write scores: %w", err)
	}
	return os.Rename(tmp, s.Path)
}
