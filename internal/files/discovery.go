package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/worldsofmind/lab-newsletter-generator/internal/tabular"
)

// Role is the part an input file plays in a report run.
type Role string

const (
	RoleRoster   Role = "roster"
	RoleCaseload Role = "caseload"
	RoleRatings  Role = "ratings"
)

// Roles lists every role in load order.
var Roles = []Role{RoleRoster, RoleCaseload, RoleRatings}

// keywords matched against lower-cased file names, in priority order.
var keywords = map[Role][]string{
	RoleRoster:   {"roster", "staff", "officers"},
	RoleCaseload: {"caseload", "statistics", "stats"},
	RoleRatings:  {"rating", "survey", "feedback"},
}

// Extensions are the file types the loader understands.
var Extensions = []string{".csv", ".txt", ".tsv", ".xlsx", ".xlsm", ".xls"}

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindInputFiles lists readable tabular files in dir, oldest first.
func (d *Discovery) FindInputFiles(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), "~$") {
			continue
		}
		if !Supported(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.Before(files[j].ModTime)
	})
	return files, nil
}

// Discover assigns a file to every role by name. When several files match a
// role the most recently modified wins. Missing roles are reported together.
func (d *Discovery) Discover(dir string) (map[Role]FileInfo, error) {
	files, err := d.FindInputFiles(dir)
	if err != nil {
		return nil, err
	}

	found := make(map[Role]FileInfo, len(Roles))
	for _, role := range Roles {
		candidates := lo.Filter(files, func(f FileInfo, _ int) bool {
			return RoleOf(f.Name) == role
		})
		if latest, ok := GetLatestFile(candidates); ok {
			found[role] = latest
		}
	}

	missing := lo.Filter(Roles, func(r Role, _ int) bool {
		_, ok := found[r]
		return !ok
	})
	if len(missing) > 0 {
		return found, fmt.Errorf("no %s file found in %s", strings.Join(lo.Map(missing, func(r Role, _ int) string {
			return string(r)
		}), ", "), d.resolve(dir))
	}
	return found, nil
}

// RoleOf guesses a file's role from its name. The first keyword hit wins so
// "survey_statistics.csv" is a ratings file.
func RoleOf(name string) Role {
	lower := strings.ToLower(filepath.Base(name))
	best, bestAt := Role(""), -1
	for _, role := range Roles {
		for _, kw := range keywords[role] {
			if at := strings.Index(lower, kw); at >= 0 && (bestAt < 0 || at < bestAt) {
				best, bestAt = role, at
			}
		}
	}
	return best
}

// Supported reports whether name has an extension the loader reads.
func Supported(name string) bool {
	return lo.Contains(Extensions, strings.ToLower(filepath.Ext(name)))
}

// ReadSource reads a file into a loader source named after its base name.
func ReadSource(path string) (tabular.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tabular.Source{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return tabular.Source{Name: filepath.Base(path), Data: data}, nil
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}

	return latest, true
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) || d.basePath == "" {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}
