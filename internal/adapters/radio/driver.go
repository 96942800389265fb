package radio

import (
	"fmt"
	"log"
	"net"
	"os/exec"
)

// execCommand allows mocking in tests.
var execCommand = exec.Command

// SetInterfaceChannel tunes iface via `iw`. Failures are expected to
// be transient (regulatory, busy) and callers treat them as soft.
func SetInterfaceChannel(iface string, channel int) error {
	if channel <= 0 {
		return fmt.Errorf("invalid channel: %d", channel)
	}
	cmd := execCommand("iw", iface, "set", "channel", fmt.Sprintf("%d", channel))
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("set channel %d on %s: %v (%s)", channel, iface, err, string(output))
	}
	return nil
}

// SetInterfaceTxPower fixes the TX power in mBm.
func SetInterfaceTxPower(iface string, mbm int) error {
	cmd := execCommand("iw", "dev", iface, "set", "txpower", "fixed", fmt.Sprintf("%d", mbm))
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("set txpower %dmBm on %s: %v (%s)", mbm, iface, err, string(output))
	}
	return nil
}

// EnableMonitorMode puts the interface into monitor mode.
func EnableMonitorMode(iface string) error {
	log.Printf("Enabling monitor mode on %s...", iface)
	if err := runCmd("ip", "link", "set", iface, "down"); err != nil {
		return err
	}
	if err := runCmd("iw", iface, "set", "type", "monitor"); err != nil {
		log.Printf("Hint: 'Device or resource busy' usually means NetworkManager or wpa_supplicant still owns the card.")
		return err
	}
	return runCmd("ip", "link", "set", iface, "up")
}

// DisableMonitorMode restores managed mode.
func DisableMonitorMode(iface string) {
	log.Printf("Restoring managed mode on %s...", iface)
	runCmd("ip", "link", "set", iface, "down")
	runCmd("iw", iface, "set", "type", "managed")
	runCmd("ip", "link", "set", iface, "up")
}

// KillConflictingProcesses stops the services that fight over the card.
func KillConflictingProcesses() error {
	for _, args := range [][]string{
		{"systemctl", "stop", "NetworkManager"},
		{"systemctl", "stop", "wpa_supplicant"},
	} {
		if err := runCmd(args[0], args[1:]...); err != nil {
			return err
		}
	}
	return nil
}

// RestoreNetworkServices restarts what KillConflictingProcesses stopped.
func RestoreNetworkServices() error {
	var lastErr error
	for _, args := range [][]string{
		{"systemctl", "start", "wpa_supplicant"},
		{"systemctl", "start", "NetworkManager"},
	} {
		if err := runCmd(args[0], args[1:]...); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func interfaceHardwareAddr(iface string) (net.HardwareAddr, error) {
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, err
	}
	if len(ifi.HardwareAddr) < 6 {
		return nil, fmt.Errorf("no hardware address on %s", iface)
	}
	return ifi.HardwareAddr, nil
}

func runCmd(name string, args ...string) error {
	cmd := execCommand(name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		log.Printf("Command failed: %s %v\nOutput: %s", name, args, string(output))
		return err
	}
	return nil
}
