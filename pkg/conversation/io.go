package conversation

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

func SaveSession(sessionFile string, session *Session) error {
	data, err := yaml.Marshal(session)
	if err != nil {
		return err
	}
	if err = os.WriteFile(sessionFile, data, 0640); err != nil {
		return err
	}
	return nil
}

func LoadSession(sessionFile string) (*Session, error) {
	data, err := os.ReadFile(sessionFile)
	if err != nil {
		return nil, err
	}

	var session Session
	if err = yaml.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode transcript %s: %w", sessionFile, err)
	}

	return &session, nil
}

// TranscriptWriter stores finished sessions as YAML files in a directory.
type TranscriptWriter struct {
	Dir string
	now func() time.Time
}

func NewTranscriptWriter(dir string) *TranscriptWriter {
	return &TranscriptWriter{Dir: dir, now: time.Now}
}

// Write stores the session under a timestamped name and returns the file path.
func (w *TranscriptWriter) Write(name string, session *Session) (string, error) {
	if err := os.MkdirAll(w.Dir, 0750); err != nil {
		return "", err
	}
	file := filepath.Join(w.Dir, fmt.Sprintf("%s-%s.yaml", w.now().UTC().Format("20060102T150405.000000000"), name))
	return file, SaveSession(file, session)
}
