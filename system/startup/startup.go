package startup

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/thatsimonsguy/irrigation-controller/internal/gpio"
	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

// ServiceOptions describe how systemd launches the controller daemon.
type ServiceOptions struct {
	User       string
	WorkDir    string
	Binary     string
	ConfigFile string
	DBPath     string
}

// WriteStartupScript writes a bash script that parks every output pin in
// its inactive state and sets up the reset input, so indicators stay dark
// until the controller drives them.
func WriteStartupScript(path string, outputs map[string]model.GPIOPin, reset model.GPIOPin) error {
	var lines []string
	lines = append(lines, "#!/bin/bash", "", "# Irrigation controller GPIO pin configuration at boot", "")

	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pin := outputs[name]
		lines = append(lines, fmt.Sprintf("# %s", name))
		lines = append(lines, fmt.Sprintf("pinctrl set %d op pn %s", pin.Number, gpio.DriveFor(pin, false)))
		lines = append(lines, "")
	}

	if reset.Number > 0 {
		pull := "pu"
		if reset.ActiveHigh {
			pull = "pd"
		}
		lines = append(lines, "# reset_button")
		lines = append(lines, fmt.Sprintf("pinctrl set %d ip %s", reset.Number, pull))
		lines = append(lines, "")
	}

	contents := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(contents), 0755); err != nil {
		return fmt.Errorf("write boot script %s: %w", path, err)
	}
	return nil
}

// InstallStartupService writes the oneshot unit that runs the boot script.
func InstallStartupService(unitPath, scriptPath string) error {
	unit := fmt.Sprintf(`[Unit]
Description=Configure irrigation GPIO pins at boot
After=local-fs.target

[Service]
Type=oneshot
Environment=PATH=/usr/local/bin:/usr/bin:/bin
ExecStart=%s
RemainAfterExit=true

[Install]
WantedBy=multi-user.target
`, scriptPath)

	if err := os.WriteFile(unitPath, []byte(unit), 0644); err != nil {
		return fmt.Errorf("write unit %s: %w", unitPath, err)
	}
	return nil
}

func RunStartupScript(scriptPath string) error {
	cmd := exec.Command("/bin/bash", scriptPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// InstallControllerService writes the daemon's unit, ordered after the pin
// unit. A storage fault leaves the controller halted for an operator, so
// systemd does not restart it.
func InstallControllerService(unitPath, pinsUnitPath string, opts ServiceOptions) error {
	pinsUnit := filepath.Base(pinsUnitPath)

	execStart := fmt.Sprintf("%s -config-file %s -db %s", opts.Binary, opts.ConfigFile, opts.DBPath)

	unit := fmt.Sprintf(`[Unit]
Description=Irrigation controller
After=%s network-online.target
Wants=network-online.target
Requires=%s

[Service]
Type=simple
User=%s
WorkingDirectory=%s
Environment=PATH=/usr/local/bin:/usr/bin:/bin
ExecStart=%s
StandardInput=tty-force
TTYPath=/dev/tty1
Restart=no

[Install]
WantedBy=multi-user.target
`, pinsUnit, pinsUnit, opts.User, opts.WorkDir, execStart)

	if err := os.WriteFile(unitPath, []byte(unit), 0644); err != nil {
		return fmt.Errorf("write unit %s: %w", unitPath, err)
	}
	return nil
}
