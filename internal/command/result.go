package command

import "strconv"

// ResultKind tags the concrete type of a Result.
type ResultKind string

const (
	KindEmpty ResultKind = "empty"
	KindNote  ResultKind = "note"
	KindShell ResultKind = "shell"
	KindFile  ResultKind = "file"
	KindScan  ResultKind = "scan"
)

// Result is the typed payload of a successful command. Consumers switch on
// the concrete type (or Kind) to read the fields of a given command kind.
type Result interface {
	Kind() ResultKind
	// Summary is a one-line human-readable description.
	Summary() string
}

// EmptyResult is recorded when a command succeeds without a payload.
type EmptyResult struct{}

func (EmptyResult) Kind() ResultKind { return KindEmpty }
func (EmptyResult) Summary() string  { return "ok" }

// NoteResult carries a message.
type NoteResult struct {
	Message string `json:"message"`
}

func (NoteResult) Kind() ResultKind  { return KindNote }
func (r NoteResult) Summary() string { return r.Message }

// ShellResult is produced by the shell command.
type ShellResult struct {
	CommandLine string `json:"command_line"`
	Output      string `json:"output"`
	ExitCode    int    `json:"exit_code"`
}

func (ShellResult) Kind() ResultKind  { return KindShell }
func (r ShellResult) Summary() string { return "ran: " + r.CommandLine }

// FileResult is produced by the write_file command.
type FileResult struct {
	Path    string `json:"path"`
	Bytes   int    `json:"bytes"`
	Created bool   `json:"created"`
}

func (FileResult) Kind() ResultKind { return KindFile }
func (r FileResult) Summary() string {
	if r.Created {
		return "created " + r.Path
	}
	return "updated " + r.Path
}

// ScanResult is produced by the scan command.
type ScanResult struct {
	Pattern string   `json:"pattern"`
	Matches []string `json:"matches"`
}

func (ScanResult) Kind() ResultKind { return KindScan }
func (r ScanResult) Summary() string {
	return r.Pattern + ": " + strconv.Itoa(len(r.Matches)) + " match(es)"
}
