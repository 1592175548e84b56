// Package identity resolves the sender identifier embedded by MAC-aware
// data link framing.
package identity

import (
	"net"

	"firestige.xyz/osisim/internal/config"
	"firestige.xyz/osisim/internal/core"
	"firestige.xyz/osisim/internal/log"
)

// interfaces is swapped in tests.
var interfaces = net.Interfaces

// Resolve returns the sender ID.
// Priority: explicit config/env value → named interface → first usable
// interface → core.DefaultSenderID.
func Resolve(cfg config.SenderConfig) string {
	if cfg.ID != "" {
		return cfg.ID
	}

	ifaces, err := interfaces()
	if err != nil {
		log.GetLogger().WithError(err).Warn("failed to list interfaces, using default sender id")
		return core.DefaultSenderID
	}

	for _, iface := range ifaces {
		if cfg.Interface != "" {
			if iface.Name == cfg.Interface && len(iface.HardwareAddr) > 0 {
				return iface.HardwareAddr.String()
			}
			continue
		}
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if len(iface.HardwareAddr) == 0 {
			continue
		}
		return iface.HardwareAddr.String()
	}

	if cfg.Interface != "" {
		log.GetLogger().WithField("interface", cfg.Interface).Warn("interface not found or has no hardware address, using default sender id")
	}
	return core.DefaultSenderID
}
