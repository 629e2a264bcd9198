package audiolink

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/lyuksovannyy/pipewire-simple-audio-link/pkg/audiolink/util"
)

const (
	crashlogFilename        = "audiolink-crash-%s.log"
	crashlogTimestampFormat = "2006.01.02-15.04.05"

	crashMessage = `-----------------------------------------------------------------
                     audiolink crashlog
-----------------------------------------------------------------
Unfortunately, audiolink has crashed.
Links it created have been removed where possible.
-----------------------------------------------------------------
Time: %s
Panic occurred: %s
Stack trace:
%s
-----------------------------------------------------------------
`
)

func (d *Audiolink) recoverFromPanic() {
	r := recover()

	if r == nil {
		return
	}

	now := time.Now()

	// a crash must not leave our links in the graph
	if d.router != nil {
		d.router.ShutdownCleanup()
	}

	if err := util.EnsureDirExists(logDirectory); err != nil {
		panic(fmt.Errorf("ensure crashlog dir exists: %w", err))
	}

	crashlogBytes := bytes.NewBufferString(fmt.Sprintf(crashMessage, now.Format(crashlogTimestampFormat), r, debug.Stack()))
	crashlogPath := filepath.Join(logDirectory, fmt.Sprintf(crashlogFilename, now.Format(crashlogTimestampFormat)))

	if err := os.WriteFile(crashlogPath, crashlogBytes.Bytes(), 0644); err != nil {
		panic(fmt.Errorf("can't even write the crashlog file contents: %w", err))
	}

	d.logger.Errorw("Encountered and logged panic, crashing",
		"crashlogPath", crashlogPath,
		"error", r)

	d.notifier.Notify("Unexpected crash occurred...",
		fmt.Sprintf("More details in %s", crashlogPath))

	if d.lockFile != "" {
		_ = util.ReleaseMutex(d.lockFile)
	}

	d.logger.Errorw("Quitting", "exitCode", 1)
	os.Exit(1)
}
