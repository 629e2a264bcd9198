package audiolink

import (
	"fmt"

	"fyne.io/systray"

	"github.com/lyuksovannyy/pipewire-simple-audio-link/pkg/audiolink/util"
)

func (d *Audiolink) initializeTray(onDone func()) {
	logger := d.logger.Named("tray")

	onReady := func() {
		logger.Debug("Tray instance ready")

		systray.SetIcon(logoIconData)
		systray.SetTitle("audiolink")
		systray.SetTooltip("audiolink")

		applyRoutes := systray.AddMenuItem("Apply routes", "Link applications to capture targets as configured")
		removeLinks := systray.AddMenuItem("Remove managed links", "Remove every link audiolink has created")

		systray.AddSeparator()
		editConfig := systray.AddMenuItem("Edit configuration", "Open config file in the default editor")

		if d.version != "" {
			systray.AddSeparator()
			versionInfo := systray.AddMenuItem(d.version, "")
			versionInfo.Disable()
		}

		systray.AddSeparator()
		quit := systray.AddMenuItem("Quit", "Remove managed links and quit")

		go func() {
			defer d.recoverFromPanic()

			for {
				select {
				case <-quit.ClickedCh:
					logger.Info("Quit menu item clicked, stopping")

					d.signalStop()

				case <-applyRoutes.ClickedCh:
					logger.Info("Apply routes menu item clicked")

					created := d.applyRoutes()
					systray.SetTooltip(fmt.Sprintf("audiolink: created %d link(s)", created))

				case <-removeLinks.ClickedCh:
					logger.Info("Remove managed links menu item clicked")

					removed := d.removeManagedLinks()
					systray.SetTooltip(fmt.Sprintf("audiolink: removed %d link(s)", removed))

				case <-editConfig.ClickedCh:
					logger.Info("Edit config menu item clicked, opening config for editing")

					if err := util.OpenExternal(logger, editorCommand(), d.configMan.configFilepath()); err != nil {
						logger.Warnw("Failed to open config file for editing", "error", err)
					}
				}
			}
		}()

		onDone()
	}

	onExit := func() {
		logger.Debug("Tray exited")
	}

	logger.Debug("Running in tray")
	systray.Run(onReady, onExit)
}

func (d *Audiolink) stopTray() {
	d.logger.Debug("Quitting tray")
	systray.Quit()
}
