package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lyuksovannyy/pipewire-simple-audio-link/pkg/audiolink"
)

var (
	gitCommit  string
	versionTag string
	buildType  string

	verbose bool
	list    bool
)

func init() {
	flag.BoolVar(&verbose, "verbose", false, "show verbose logs (useful for debugging link commands)")
	flag.BoolVar(&verbose, "v", false, "shorthand for --verbose")
	flag.BoolVar(&list, "list", false, "print applications, capture targets and managed links, then exit")
	flag.Parse()
}

func main() {
	logger, err := audiolink.NewLogger(buildType)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}

	named := logger.Named("main")
	named.Debug("Created logger")

	named.Infow("Version info",
		"gitCommit", gitCommit,
		"versionTag", versionTag,
		"buildType", buildType)

	if verbose {
		named.Debug("Verbose flag provided, all log messages will be shown")
	}

	d, err := audiolink.NewAudiolink(logger, verbose)
	if err != nil {
		named.Fatalw("Failed to create audiolink object", "error", err)
	}

	if list {
		if err := d.Describe(os.Stdout); err != nil {
			named.Fatalw("Failed to describe audio graph", "error", err)
		}

		return
	}

	if buildType != "" && (versionTag != "" || gitCommit != "") {
		identifier := gitCommit
		if versionTag != "" {
			identifier = versionTag
		}

		versionString := fmt.Sprintf("Version %s-%s", buildType, identifier)
		d.SetVersion(versionString)
	}

	if err = d.Initialize(); err != nil {
		named.Fatalw("Failed to initialize audiolink", "error", err)
	}
}
