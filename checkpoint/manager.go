package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/agentcore/agent"
	"github.com/hupe1980/agentcore/logging"
	"github.com/hupe1980/agentcore/memory"
)

// Options configures a Manager instance.
type Options struct {
	// Logger receives checkpoint activity. Defaults to a NoOp logger.
	Logger logging.Logger
}

// Manager stores agent files in a checkpoint directory, one timestamped
// file per checkpoint.
type Manager struct {
	dir    string
	logger logging.Logger
}

// NewManager creates a Manager rooted at the given directory. The directory
// is created lazily on the first checkpoint.
func NewManager(dir string, optFns ...func(o *Options)) *Manager {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Manager{
		dir:    dir,
		logger: opts.Logger,
	}
}

// Checkpoint snapshots the agent and writes a timestamped .af file into the
// manager's directory, returning the created filename.
func (m *Manager) Checkpoint(a *agent.ModelAgent, mem *memory.AgentMemory) (string, error) {
	file := Snapshot(a, mem)

	timestamp := time.Now().UTC().Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s.af", sanitizeName(a.Name()), timestamp)

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("create checkpoint dir: %w", err)
	}

	if err := file.Save(filepath.Join(m.dir, filename)); err != nil {
		return "", err
	}

	m.logger.Info("checkpoint.saved", "agent", a.Name(), "file", filename)

	return filename, nil
}

// List returns the checkpoint filenames recorded for an agent name, sorted
// lexicographically. Timestamped names therefore sort oldest first. A
// missing checkpoint directory yields an empty list.
func (m *Manager) List(agentName string) ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}

		return nil, fmt.Errorf("read checkpoint dir: %w", err)
	}

	prefix := sanitizeName(agentName) + "_"

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".af") {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	return names, nil
}

// Load reads a named checkpoint from the manager's directory.
func (m *Manager) Load(filename string) (*AgentFile, error) {
	return Load(filepath.Join(m.dir, filename))
}

// Delete removes a named checkpoint.
func (m *Manager) Delete(filename string) error {
	if err := os.Remove(filepath.Join(m.dir, filename)); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}

	m.logger.Info("checkpoint.deleted", "file", filename)

	return nil
}

// sanitizeName normalizes an agent name for use in filenames.
func sanitizeName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}
