package server

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning is returned when another server process is found.
var ErrAlreadyRunning = errors.New("another catpoint-server is already running")

// ensureSingleInstance refuses to start when another process runs the same
// executable, since two servers would overwrite each other's state.
func ensureSingleInstance() error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	processList, err := ps.Processes()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	return checkSingleInstance(processList, os.Getpid(), filepath.Base(executable))
}

func checkSingleInstance(processList []ps.Process, thisProcessID int, processName string) error {
	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() != processName {
			continue
		}

		return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, process.Pid())
	}

	return nil
}
