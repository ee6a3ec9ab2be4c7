package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingRequirement — requirement_id не передан. Процесс не спавнится.
	ErrMissingRequirement = errors.New("missing required parameter: requirement_id")

	// ErrInvalidIdentifier — идентификатор не прошел allow-list.
	// Аргументы уходят процессу argv-вектором, но мусор в аргументах
	// агента все равно не нужен.
	ErrInvalidIdentifier = errors.New("identifier contains invalid characters")
)

// ProcessError — сбой запуска внешнего агента: ненулевой код выхода,
// таймаут или переполнение буфера вывода. Несет все, что успели захватить.
type ProcessError struct {
	ExitCode  int
	Stdout    string
	Stderr    string
	TimedOut  bool
	Truncated bool // Вывод превысил лимит, процесс убит
	Cause     error
}

func (e *ProcessError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("agent: process timed out (exit_code=%d)", e.ExitCode)
	case e.Truncated:
		return fmt.Sprintf("agent: process output exceeded buffer limit (exit_code=%d)", e.ExitCode)
	default:
		return fmt.Sprintf("agent: process exited with code %d", e.ExitCode)
	}
}

func (e *ProcessError) Unwrap() error {
	return e.Cause
}
