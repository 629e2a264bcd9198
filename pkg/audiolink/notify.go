package audiolink

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gen2brain/beeep"
	"go.uber.org/zap"

	"github.com/lyuksovannyy/pipewire-simple-audio-link/pkg/audiolink/util"
)

//go:embed assets/logo.png
var logoIconData []byte

const notificationIconFilename = "audiolink-logo.png"

// Notifier provides generic notification sending
type Notifier interface {
	Notify(title string, message string)
}

// ToastNotifier provides toast notifications through the desktop's notification daemon
type ToastNotifier struct {
	logger *zap.SugaredLogger
}

func NewToastNotifier(logger *zap.SugaredLogger) (*ToastNotifier, error) {
	logger = logger.Named("notifier")
	tn := &ToastNotifier{logger: logger}

	logger.Debug("Created toast notifier instance")

	return tn, nil
}

// Notify sends a toast notification
func (tn *ToastNotifier) Notify(title string, message string) {
	appIconPath := filepath.Join(os.TempDir(), notificationIconFilename)

	// write the icon once per boot, the notification daemon needs a path
	if !util.FileExists(appIconPath) {
		tn.logger.Debugw("Notification icon doesn't exist, creating", "path", appIconPath)

		if err := os.WriteFile(appIconPath, logoIconData, 0644); err != nil {
			tn.logger.Errorw("Failed to write notification icon", "error", err)
		}
	}

	tn.logger.Infow("Sending toast notification", "title", title, "message", message)

	if err := beeep.Notify(title, message, appIconPath); err != nil {
		tn.logger.Errorw("Failed to send toast notification", "error", fmt.Errorf("beeep notify: %w", err))
	}
}
