package audiolink

import (
	"fmt"
	"net"

	"github.com/jfreymuth/pulse/proto"
	"go.uber.org/zap"
)

// graphWatcher listens on PipeWire's PulseAudio compatibility socket and signals
// whenever a new playback stream shows up
type graphWatcher struct {
	logger *zap.SugaredLogger

	client *proto.Client
	conn   net.Conn

	newStreams chan struct{}
}

func newGraphWatcher(logger *zap.SugaredLogger) (*graphWatcher, error) {
	logger = logger.Named("watcher")

	client, conn, err := proto.Connect("")
	if err != nil {
		logger.Warnw("Failed to establish PulseAudio connection", "error", err)
		return nil, fmt.Errorf("establish PulseAudio connection: %w", err)
	}

	request := proto.SetClientName{
		Props: proto.PropList{
			"application.name": proto.PropListString("audiolink"),
		},
	}
	reply := proto.SetClientNameReply{}

	if err := client.Request(&request, &reply); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set PulseAudio client name: %w", err)
	}

	gw := &graphWatcher{
		logger:     logger,
		client:     client,
		conn:       conn,
		newStreams: make(chan struct{}, 1), // coalesces bursts of events
	}

	client.Callback = func(msg interface{}) {
		switch msg := msg.(type) {
		case *proto.SubscribeEvent:
			if msg.Event&proto.EventFacilityMask == proto.EventSinkSinkInput &&
				msg.Event.GetType() == proto.EventNew {
				gw.logger.Debugw("New playback stream", "sinkInputIndex", msg.Index)
				gw.signal()
			}
		}
	}

	if err := client.Request(&proto.Subscribe{Mask: proto.SubscriptionMaskSinkInput}, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("subscribe to PulseAudio sink input events: %w", err)
	}

	logger.Debug("Created graph watcher instance")

	return gw, nil
}

func (gw *graphWatcher) signal() {
	select {
	case gw.newStreams <- struct{}{}:
	default:
	}
}

// NewStreams receives a value after one or more new playback streams appeared
func (gw *graphWatcher) NewStreams() <-chan struct{} {
	return gw.newStreams
}

func (gw *graphWatcher) Release() error {
	if err := gw.conn.Close(); err != nil {
		gw.logger.Warnw("Failed to close PulseAudio connection", "error", err)
		return fmt.Errorf("close PulseAudio connection: %w", err)
	}

	gw.logger.Debug("Released graph watcher instance")

	return nil
}
