// Package sysnotify wraps go-systemd's sd_notify protocol so the daemon can
// report readiness and service a watchdog ping, when started under systemd.
package sysnotify

import (
	"context"
	"log"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Ready tells systemd the daemon has finished startup. Outside a systemd
// unit with NotifyAccess set it only logs that it skipped, and returns nil.
func Ready() error {
	ok, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		return err
	}
	if !ok {
		log.Println("[sysnotify] not running under systemd notify socket, skipping READY=1")
	}
	return nil
}

// Stopping tells systemd the daemon is shutting down.
func Stopping() {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		log.Printf("[sysnotify] STOPPING=1 notify failed: %v", err)
	}
}

// Status pushes a one-line human-readable status string, shown by
// `systemctl status`.
func Status(msg string) {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStatus+msg); err != nil {
		log.Printf("[sysnotify] STATUS notify failed: %v", err)
	}
}

// WatchdogLoop pings the systemd watchdog at half its configured interval
// until ctx is cancelled, per sd_notify(3)'s recommendation. It is a no-op
// if WATCHDOG_USEC is not set in the unit's environment.
func WatchdogLoop(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
				log.Printf("[sysnotify] watchdog ping failed: %v", err)
			}
		}
	}
}
