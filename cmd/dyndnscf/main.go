// Command dyndnscf keeps a Cloudflare A record pointed at the public
// IP a router's web console reports, for ISPs that expose the address
// nowhere else.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"syscall"
	"time"

	"github.com/homelab-go/dyndns"
	"github.com/joho/godotenv"
	"golang.org/x/term"
)

var config = struct {
	EnvFile string
	IP      string
	Print   bool
	Headful bool
	Verbose bool
}{}

func init() {
	flag.StringVar(&config.EnvFile, "env", ".env", "Path to environment file with router and Cloudflare settings")
	flag.StringVar(&config.IP, "ip", config.IP, "IP address to set, skipping the router console")
	flag.BoolVar(&config.Print, "print", false, "Print the observed ISP IP and exit without touching DNS")
	flag.BoolVar(&config.Headful, "headful", false, "Show the browser window while scraping the router console")
	flag.BoolVar(&config.Verbose, "v", false, "Enable verbose logging")
	flag.Parse()

	if config.Verbose {
		logger = log.Default()
	}
}

var logger *log.Logger = log.New(io.Discard, "", log.LstdFlags)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {

	settings, err := loadSettings(config.EnvFile)
	if err != nil {
		return err
	}
	logger.Printf("settings loaded for router %s, record %s", settings.RouterURL, settings.RecordName)

	var observer dyndns.Observer
	if config.IP != "" {
		if observer, err = dyndns.FromString(config.IP); err != nil {
			return fmt.Errorf("invalid -ip value: %w", err)
		}
	} else {
		router := dyndns.NewRouterObserver(settings.RouterURL, settings.RouterPassword, settings.RouterTimeout)
		router.Headful = config.Headful
		router.SetLogger(logger)
		observer = router
	}

	if config.Print {
		// diagnostic mode: observe only, no DNS involvement
		ip, err := observer.ObserveIP(context.Background())
		if err != nil {
			return fmt.Errorf("observation failed: %w", err)
		}
		fmt.Println(ip)
		return nil
	}

	client, err := dyndns.New(settings.ZoneID, settings.RecordID, settings.RecordName,
		dyndns.UsingCloudflare(settings.APIEmail, settings.APIKey),
		dyndns.UsingObserver(observer),
		dyndns.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("error creating dyndns client: %w", err)
	}

	outcome, err := client.Run(context.Background())
	if err != nil {
		// an observation failure ends the run with a non-zero exit
		return fmt.Errorf("run: %w", err)
	}

	switch outcome.Status {
	case dyndns.NoChange:
		fmt.Printf("record %s is already set to %s\n", settings.RecordName, outcome.IP)
	case dyndns.Updated:
		fmt.Printf("record %s updated to %s\n", settings.RecordName, outcome.IP)
	case dyndns.SyncFailed:
		// reported, not fatal: the next scheduled run gets another shot
		fmt.Printf("synchronization failed: %s\n", outcome.Err)
	}
	return nil
}

type settings struct {
	RouterURL      string
	RouterPassword string
	RouterTimeout  time.Duration

	APIEmail   string
	APIKey     string
	ZoneID     string
	RecordID   string
	RecordName string
}

func loadSettings(path string) (s settings, err error) {
	vars, err := godotenv.Read(path)
	if os.IsNotExist(err) {
		// no env file; fall back to the process environment
		logger.Printf("env file %q does not exist; reading the process environment\n", path)
		vars, err = map[string]string{}, nil
	}
	if err != nil {
		return s, fmt.Errorf("error loading %q: %w", path, err)
	}

	get := func(name string) string {
		if v, ok := vars[name]; ok {
			return v
		}
		return os.Getenv(name)
	}

	s.RouterURL = get("RTR_URL")
	s.RouterPassword = get("RTR_PWD")
	s.APIEmail = get("DNS_API_EMAIL")
	s.APIKey = get("DNS_API_KEY")
	s.ZoneID = get("DNS_ZONE_ID")
	s.RecordID = get("DNS_ZONE_REC_ID")
	s.RecordName = get("DNS_ZONE_REC_NAME")

	if timeout := get("RTR_TIMEOUT"); timeout != "" {
		seconds, err := strconv.Atoi(timeout)
		if err != nil || seconds <= 0 {
			return s, fmt.Errorf("RTR_TIMEOUT must be a positive number of seconds; got %q", timeout)
		}
		s.RouterTimeout = time.Duration(seconds) * time.Second
	}

	if config.IP == "" && s.RouterURL == "" {
		return s, errors.New("RTR_URL must be set")
	}
	if !config.Print {
		for name, value := range map[string]string{
			"DNS_API_EMAIL":     s.APIEmail,
			"DNS_API_KEY":       s.APIKey,
			"DNS_ZONE_ID":       s.ZoneID,
			"DNS_ZONE_REC_ID":   s.RecordID,
			"DNS_ZONE_REC_NAME": s.RecordName,
		} {
			if value == "" {
				return s, fmt.Errorf("%s must be set", name)
			}
		}
	}

	if config.IP == "" && s.RouterPassword == "" {
		if s.RouterPassword, err = promptPassword(); err != nil {
			return s, err
		}
	}
	return s, nil
}

func promptPassword() (string, error) {
	fmt.Printf("Enter router admin password: \n")
	bytepwd, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("error reading password from stdin: %w", err)
	}
	return string(bytepwd), nil
}
