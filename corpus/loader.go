package corpus

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/heffrey78/claude-tools/engineerr"
)

// LogExt is the file extension the Loader treats as a conversation file.
const LogExt = ".jsonl"

// maxLineSize caps the size of a single JSONL line the scanner will accept.
const maxLineSize = 10 * 1024 * 1024

// Loader discovers project directories under a root and streams their JSONL
// files into Conversations.
type Loader struct {
	Root   string
	Logger *slog.Logger
}

// NewLoader builds a Loader rooted at root. A nil logger falls back to
// slog.Default().
func NewLoader(root string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{Root: root, Logger: logger}
}

// Load performs a full discover-and-parse pass, rebuilding a Corpus from
// scratch. A refresh always re-runs the walk rather than diffing against
// a prior result.
func (l *Loader) Load(ctx context.Context) (*Corpus, error) {
	info, err := os.Stat(l.Root)
	if err != nil || !info.IsDir() {
		return nil, engineerr.Wrap(engineerr.KindCorpusMissing, "corpus root not found: "+l.Root, err)
	}

	projectDirs, err := os.ReadDir(l.Root)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindCorpusMissing, "cannot read corpus root", err)
	}

	type fileJob struct {
		project string
		path    string
	}
	var jobs []fileJob
	for _, pd := range projectDirs {
		if !pd.IsDir() {
			continue
		}
		projectPath := filepath.Join(l.Root, pd.Name())
		entries, err := os.ReadDir(projectPath)
		if err != nil {
			l.Logger.Warn("cannot read project directory", slog.String("path", projectPath), slog.Any("err", err))
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), LogExt) {
				continue
			}
			jobs = append(jobs, fileJob{project: pd.Name(), path: filepath.Join(projectPath, e.Name())})
		}
	}

	// Bounded parallelism = number of CPU cores.
	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) && len(jobs) > 0 {
		workers = len(jobs)
	}

	type result struct {
		conv  *Conversation
		diags []Diagnostic
		stamp fileStamp
	}
	results := make([]result, len(jobs))

	var wg sync.WaitGroup
	sem := make(chan struct{}, max(workers, 1))
	for i, job := range jobs {
		select {
		case <-ctx.Done():
			return nil, engineerr.New(engineerr.KindCancelled, "load cancelled")
		default:
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, job fileJob) {
			defer wg.Done()
			defer func() { <-sem }()
			conv, diags, stamp := l.loadFile(job.project, job.path)
			results[i] = result{conv: conv, diags: diags, stamp: stamp}
		}(i, job)
	}
	wg.Wait()

	corpus := &Corpus{}
	var stamps []fileStamp
	for _, r := range results {
		stamps = append(stamps, r.stamp)
		corpus.Diagnostics = append(corpus.Diagnostics, r.diags...)
		if r.conv != nil {
			corpus.Conversations = append(corpus.Conversations, r.conv)
		}
	}

	sort.Slice(stamps, func(i, j int) bool { return stamps[i].path < stamps[j].path })
	corpus.Hash = hashFileStamps(stamps)

	sort.Slice(corpus.Conversations, func(i, j int) bool {
		return corpus.Conversations[i].ID < corpus.Conversations[j].ID
	})

	return corpus, nil
}

// loadFile parses a single session file. It never returns an error for
// malformed content — only I/O failures opening the file are reported as a
// diagnostic, and the file is otherwise skipped.
func (l *Loader) loadFile(project, path string) (*Conversation, []Diagnostic, fileStamp) {
	info, statErr := os.Stat(path)
	stamp := fileStamp{path: path}
	if statErr == nil {
		stamp.size = info.Size()
		stamp.mtimeNs = info.ModTime().UnixNano()
	}

	f, err := os.Open(path)
	if err != nil {
		l.Logger.Warn("file unreadable", slog.String("path", path), slog.Any("err", err))
		return nil, []Diagnostic{{Kind: "file_unreadable", Path: path, Message: err.Error()}}, stamp
	}
	defer f.Close()

	id := strings.TrimSuffix(filepath.Base(path), LogExt)
	conv := &Conversation{
		ID:                 id,
		Project:            project,
		Path:               path,
		MessageCountByRole: make(map[Role]int),
		ToolNames:          make(map[string]struct{}),
		Models:             make(map[string]struct{}),
		IsSubAgent:         strings.HasPrefix(filepath.Base(path), "agent-"),
	}

	var diags []Diagnostic
	lineNo := 0
	parsedAny := false

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var raw rawRecord
		if err := json.Unmarshal(line, &raw); err != nil {
			conv.MalformedLines++
			diags = append(diags, Diagnostic{Kind: "record_malformed", Path: path, Line: lineNo, Message: err.Error()})
			continue
		}

		ts, tsOK := parseTimestamp(raw.Timestamp)
		if !tsOK {
			conv.MalformedLines++
			diags = append(diags, Diagnostic{Kind: "record_malformed", Path: path, Line: lineNo, Message: "unparseable or missing timestamp"})
			continue
		}

		if msg, ok := buildMessage(raw, ts); ok {
			conv.Messages = append(conv.Messages, msg)
			parsedAny = true
			accumulateDerived(conv, msg)
		}
		// Unknown types and "summary" records are no-ops: they are not
		// counted as malformed, but they produce no Message, so a file made
		// only of such records is reported as empty_file below.
	}
	if err := scanner.Err(); err != nil {
		diags = append(diags, Diagnostic{Kind: "file_unreadable", Path: path, Message: err.Error()})
	}

	if !parsedAny {
		l.Logger.Warn("no parseable conversation content", slog.String("path", path))
		diags = append(diags, Diagnostic{Kind: "empty_file", Path: path, Message: "no line produced a message"})
		return nil, diags, stamp
	}

	finalizeDerived(conv)
	return conv, diags, stamp
}
