package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/thatsimonsguy/irrigation-controller/db"
	"github.com/thatsimonsguy/irrigation-controller/internal/config"
	"github.com/thatsimonsguy/irrigation-controller/internal/device"
	"github.com/thatsimonsguy/irrigation-controller/internal/model"
	"github.com/thatsimonsguy/irrigation-controller/internal/pinctrl"
	"github.com/thatsimonsguy/irrigation-controller/internal/store"
	"github.com/thatsimonsguy/irrigation-controller/system/startup"
)

func main() {
	DebugCLI()
}

func DebugCLI() {
	var dbPath, configFile, command, ssid, pass string
	var user, workDir, binary string
	flag.StringVar(&dbPath, "db", "data/irrigation.db", "Path to the SQLite database file")
	flag.StringVar(&configFile, "config-file", "config.json", "Path to controller config file")
	flag.StringVar(&command, "cmd", "", "Command to run (see -help)")
	flag.StringVar(&ssid, "ssid", "", "Network name for set-credentials")
	flag.StringVar(&pass, "pass", "", "Network password for set-credentials")
	flag.StringVar(&user, "user", "pi", "Service user for install-services")
	flag.StringVar(&workDir, "workdir", "/home/pi/irrigation-controller", "Working directory for install-services")
	flag.StringVar(&binary, "binary", "/usr/local/bin/irrigation-controller", "Controller binary for install-services")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help || command == "" {
		fmt.Println("\nUsage of irrigation-debug:")
		fmt.Println("  -db string\tPath to the SQLite database file (default 'data/irrigation.db')")
		fmt.Println("  -config-file string\tPath to controller config file (default 'config.json')")
		fmt.Println("  -cmd string\tCommand to run:")
		fmt.Println("      show-credentials, set-credentials, clear-credentials,")
		fmt.Println("      show-schedule, clear-schedule, list-keys,")
		fmt.Println("      write-boot-script, run-boot-script, install-services, show-pins")
		fmt.Println("  -ssid string\tNetwork name for set-credentials")
		fmt.Println("  -pass string\tNetwork password for set-credentials")
		fmt.Println("  -user, -workdir, -binary\tService settings for install-services")
		fmt.Println("  -help\tShow this help message")
		os.Exit(0)
	}

	var err error
	switch command {
	case "show-credentials":
		err = db.WithDatabase(dbPath, showCredentials)
	case "set-credentials":
		c := model.Credentials{SSID: ssid, Password: pass}
		if !model.ValidCredentialLength(c.SSID) || !model.ValidCredentialLength(c.Password) {
			fmt.Printf("Error: -ssid and -pass must be 1..%d characters\n", model.MaxCredentialLength)
			os.Exit(1)
		}
		err = db.WithDatabase(dbPath, func(conn *sql.DB) error {
			return store.New(conn).SaveCredentials(c)
		})
	case "clear-credentials":
		err = db.WithDatabase(dbPath, func(conn *sql.DB) error {
			return store.New(conn).ClearCredentials()
		})
	case "show-schedule":
		err = db.WithDatabase(dbPath, showSchedule)
	case "clear-schedule":
		err = db.WithDatabase(dbPath, func(conn *sql.DB) error {
			return store.New(conn).ClearSchedule()
		})
	case "list-keys":
		err = db.WithDatabase(dbPath, listKeys)
	case "write-boot-script":
		cfg := mustReadConfig(configFile)
		err = startup.WriteStartupScript(cfg.BootScriptPath, outputPins(cfg).Named(), cfg.GPIO.ResetPin())
	case "run-boot-script":
		err = startup.RunStartupScript(mustReadConfig(configFile).BootScriptPath)
	case "install-services":
		cfg := mustReadConfig(configFile)
		err = startup.InstallStartupService(cfg.OSServicePath, cfg.BootScriptPath)
		if err == nil {
			err = startup.InstallControllerService(cfg.MainServicePath, cfg.OSServicePath, startup.ServiceOptions{
				User:       user,
				WorkDir:    workDir,
				Binary:     binary,
				ConfigFile: configFile,
				DBPath:     dbPath,
			})
		}
	case "show-pins":
		err = showPins(mustReadConfig(configFile))
	default:
		fmt.Println("Invalid command")
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Command %s failed: %v\n", command, err)
		os.Exit(1)
	}
	fmt.Printf("Command %s completed successfully\n", command)
}

func mustReadConfig(path string) config.Config {
	cfg, err := config.Read(path)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func outputPins(cfg config.Config) device.Pins {
	status, zones := cfg.GPIO.OutputPins()
	return device.Pins{Status: status, Zones: zones}
}

func showCredentials(conn *sql.DB) error {
	c, ok, err := store.New(conn).LoadCredentials()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("No credentials stored")
		return nil
	}
	fmt.Printf("SSID: %s\nPassword: %d characters\n", c.SSID, len(c.Password))
	return nil
}

func showSchedule(conn *sql.DB) error {
	sch, ok, err := store.New(conn).LoadSchedule()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("No schedule stored")
		return nil
	}
	fmt.Printf("Zone 1: %t\nZone 2: %t\nZone 3: %t\n", sch.Zone1, sch.Zone2, sch.Zone3)
	if sch.Received() {
		fmt.Printf("Last update: %s\n", sch.LastUpdate.Local().Format(time.RFC3339))
	}
	return nil
}

func listKeys(conn *sql.DB) error {
	entries, err := db.ListEntries(conn)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%-24s %4d bytes  %s\n", e.Key, e.Size, e.UpdatedAt.Local().Format(time.RFC3339))
	}
	return nil
}

func showPins(cfg config.Config) error {
	states, err := pinctrl.ReadAllPins()
	if err != nil {
		return err
	}
	named := outputPins(cfg).Named()
	if reset := cfg.GPIO.ResetPin(); reset.Number > 0 {
		named["reset_button"] = reset
	}
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pin := named[name]
		st, ok := states[pin.Number]
		if !ok {
			fmt.Printf("%-12s GPIO %-3d unknown\n", name, pin.Number)
			continue
		}
		fmt.Printf("%-12s GPIO %-3d %s %s %s %s\n", name, pin.Number, st.Mode, st.Pull, st.Drive, st.Level)
	}
	return nil
}
