// Package audiolink routes audio from running applications into capture
// devices on a PipeWire graph, and removes the links it made when it exits.
package audiolink

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/mitchellh/go-ps"
	"go.uber.org/zap"

	"github.com/lyuksovannyy/pipewire-simple-audio-link/pkg/audiolink/util"
)

const instanceName = "audiolink"

// Audiolink is the main entity managing all subcomponents
type Audiolink struct {
	logger    *zap.SugaredLogger
	notifier  Notifier
	configMan *ConfigManager

	querier GraphQuerier
	links   *LinkManager
	router  *RoutingController
	watcher *graphWatcher

	lockFile string

	runningWithTray bool
	stopChannel     chan bool
	version         string
	verbose         bool
}

func NewAudiolink(logger *zap.SugaredLogger, verbose bool) (*Audiolink, error) {
	logger = logger.Named("audiolink")

	notifier, err := NewToastNotifier(logger)
	if err != nil {
		logger.Errorw("Failed to create ToastNotifier", "error", err)
		return nil, fmt.Errorf("create new ToastNotifier: %w", err)
	}

	config, err := NewConfig(logger, notifier)
	if err != nil {
		logger.Errorw("Failed to create Config", "error", err)
		return nil, fmt.Errorf("create new Config: %w", err)
	}

	d := &Audiolink{
		logger:      logger,
		notifier:    notifier,
		configMan:   config,
		stopChannel: make(chan bool, 1),
		verbose:     verbose,
	}

	logger.Debug("Created audiolink instance")

	return d, nil
}

// Initialize loads config, checks the PipeWire tools and starts routing.
// It blocks until audiolink is told to stop.
func (d *Audiolink) Initialize() error {
	d.logger.Debug("Initializing")

	if err := d.configMan.Load(); err != nil {
		d.logger.Errorw("Failed to load config during initialization", "error", err)
		return fmt.Errorf("load config during init: %w", err)
	}

	lockFile, err := util.CreateMutex(instanceName)
	if err != nil {
		d.logger.Errorw("Failed to acquire single instance lock", "error", err)
		d.notifier.Notify("audiolink is already running", err.Error())
		return fmt.Errorf("acquire instance lock: %w", err)
	}

	d.lockFile = lockFile

	if err := d.setupRouting(); err != nil {
		_ = util.ReleaseMutex(d.lockFile)
		return err
	}

	d.checkGraphServer()
	d.setupGraphWatcher()
	d.setupInterruptHandler()

	if d.configMan.Current().DisableTray {
		d.logger.Debugw("Running without tray icon", "reason", "disabled in config")

		// run in main thread while waiting on ctrl+C
		d.run()
	} else {
		d.runningWithTray = true
		d.initializeTray(d.run)
	}

	return nil
}

// Describe prints the applications and capture targets currently in the graph,
// along with the links this process manages
func (d *Audiolink) Describe(w io.Writer) error {
	if err := d.configMan.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := d.setupRouting(); err != nil {
		return err
	}

	d.describe(w)

	return nil
}

func (d *Audiolink) describe(w io.Writer) {
	fmt.Fprintln(w, "Applications:")
	for _, entry := range d.router.ListApplications() {
		fmt.Fprintf(w, "  %5d  %s\n", entry.ID, entry.DisplayName)
	}

	fmt.Fprintln(w, "Capture targets:")
	for _, entry := range d.router.ListCaptureTargets() {
		fmt.Fprintf(w, "  %5d  %s\n", entry.ID, entry.DisplayName)
	}

	// only links made by this process, so a fresh -list run shows none
	fmt.Fprintln(w, "Managed links:")
	for _, entry := range d.router.ListManagedLinks() {
		fmt.Fprintf(w, "  %5d -> %-5d  %s -> %s\n",
			entry.Link.Output, entry.Link.Input, entry.OutputName, entry.InputName)
	}
}

// SetVersion causes audiolink to add a version string to its tray menu if called before Initialize
func (d *Audiolink) SetVersion(version string) {
	d.version = version
}

// Verbose returns a boolean indicating whether audiolink is running in verbose mode
func (d *Audiolink) Verbose() bool {
	return d.verbose
}

func (d *Audiolink) setupRouting() error {
	current := d.configMan.Current()

	if err := probeConfiguredTools(current.Tools); err != nil {
		d.logger.Errorw("Required tools are missing", "error", err)
		d.notifier.Notify("Required PipeWire utilities not found",
			fmt.Sprintf("%s. Please install your distribution's PipeWire tools package.", err))

		return fmt.Errorf("probe tools: %w", err)
	}

	runner := newExecRunner(d.logger, current.CommandTimeout)

	d.querier = newPWDumpQuerier(d.logger, runner, current.Tools.Dump)
	d.links = NewLinkManager(d.logger, d.querier, runner, current.Tools.Link)
	d.router = NewRoutingController(d.logger, d.querier, d.links)

	return nil
}

func (d *Audiolink) checkGraphServer() {
	running, err := graphServerRunning(ps.Processes)
	if err != nil {
		d.logger.Warnw("Failed to check for a running PipeWire daemon", "error", err)
		return
	}

	if !running {
		d.logger.Warnw("No PipeWire daemon found", "process", graphServerProcessName)
		d.notifier.Notify("PipeWire doesn't seem to be running",
			"No applications or capture targets will show up until it starts.")
	}
}

func (d *Audiolink) setupGraphWatcher() {
	watcher, err := newGraphWatcher(d.logger)
	if err != nil {
		d.logger.Warnw("Graph watcher unavailable, routes will only apply on demand", "error", err)
		return
	}

	d.watcher = watcher
}

func (d *Audiolink) setupInterruptHandler() {
	interruptChannel := util.SetupCloseHandler()

	go func() {
		signal := <-interruptChannel
		d.logger.Debugw("Interrupted", "signal", signal)
		d.signalStop()
	}()
}

func (d *Audiolink) setupOnConfigReload() {
	configReloadedChannel := d.configMan.SubscribeToChanges()

	go func() {
		defer d.recoverFromPanic()

		for range configReloadedChannel {
			d.logger.Info("Detected config reload, re-applying routes")
			d.applyRoutes()
		}
	}()
}

func (d *Audiolink) setupOnNewStreams() {
	if d.watcher == nil {
		return
	}

	go func() {
		defer d.recoverFromPanic()

		for range d.watcher.NewStreams() {
			if !d.configMan.Current().AutoApply {
				continue
			}

			d.logger.Debug("New playback stream appeared, applying routes")
			d.applyRoutes()
		}
	}()
}

func (d *Audiolink) applyRoutes() int {
	return d.router.ApplyRoutes(d.configMan.Current().Routes)
}

// removeManagedLinks removes every link we currently manage, returning how many went away
func (d *Audiolink) removeManagedLinks() int {
	managed := d.router.ListManagedLinks()

	selected := make([]Link, 0, len(managed))
	for _, entry := range managed {
		d.logger.Debugw("Removing managed link", "from", entry.OutputName, "to", entry.InputName)
		selected = append(selected, entry.Link)
	}

	return len(d.router.BatchRemove(selected))
}

func (d *Audiolink) run() {
	defer d.recoverFromPanic()

	d.logger.Info("Run loop starting")

	d.setupOnConfigReload()
	d.setupOnNewStreams()

	go d.configMan.WatchConfigFileChanges()

	if created := d.applyRoutes(); created > 0 {
		d.logger.Infow("Applied configured routes on startup", "created", created)
	}

	// wait until gracefully stopped
	<-d.stopChannel
	d.logger.Debug("Stop channel signaled, terminating")

	if err := d.stop(); err != nil {
		d.logger.Warnw("Failed to stop audiolink", "error", err)
		os.Exit(1)
	} else {
		os.Exit(0)
	}
}

func (d *Audiolink) signalStop() {
	d.logger.Debug("Signalling stop channel")

	select {
	case d.stopChannel <- true:
	default:
		d.logger.Debug("Stop already signalled")
	}
}

func (d *Audiolink) stop() error {
	d.logger.Info("Stopping")

	d.configMan.StopWatchingConfigFile()

	var stopErr error

	// no new stream events from here on
	if d.watcher != nil {
		if err := d.watcher.Release(); err != nil {
			stopErr = fmt.Errorf("release graph watcher: %w", err)
		}
	}

	// must happen before exit, the links would outlive us otherwise.
	// creates racing with this (tray, reload) are refused once it has run
	d.router.ShutdownCleanup()

	if err := util.ReleaseMutex(d.lockFile); err != nil {
		d.logger.Warnw("Failed to release instance lock", "error", err)
	}

	if d.runningWithTray {
		d.stopTray()
	}

	// attempt to sync on exit - this won't necessarily work but can't harm
	_ = d.logger.Sync()

	return stopErr
}

func editorCommand() string {
	if path, err := exec.LookPath("xdg-open"); err == nil {
		return path
	}

	return "gedit"
}
