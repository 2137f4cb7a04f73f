// Command bridge runs the NFC bridge's HTTP facade and session manager over
// either a real I2C-attached PN532 or the mock target controller, selected
// by USE_MOCK_PN532 (spec §6).
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiosk-nfc/nfc-bridge-core/httpapi"
	"github.com/kiosk-nfc/nfc-bridge-core/internal/logging"
	"github.com/kiosk-nfc/nfc-bridge-core/pn532"
	"github.com/kiosk-nfc/nfc-bridge-core/redirect"
	"github.com/kiosk-nfc/nfc-bridge-core/session"
	"github.com/kiosk-nfc/nfc-bridge-core/transport/i2c"
	"github.com/kiosk-nfc/nfc-bridge-core/transport/mock"
)

func main() {
	selftest := flag.Bool("selftest", false, "run a firmware-version and SAM-configuration check against the configured transport and exit")
	flag.Parse()

	cfg := loadConfig()

	device, err := openController(cfg)
	if err != nil {
		logging.Warnf("failed to open PN532 controller: %v", err)
		os.Exit(1)
	}
	defer device.Close()

	if *selftest {
		runSelftest(device)
		return
	}

	var mgrOpts []session.ManagerOption
	if cfg.RedirectBaseURL != "" {
		mgrOpts = append(mgrOpts, session.WithNotifier(redirect.New(cfg.RedirectBaseURL, cfg.RedirectAPIKey)))
	}

	mgr := session.NewManager(device, session.Config{
		SessionTimeout: cfg.SessionTimeout,
		TaggingTimeout: cfg.TaggingTimeout,
	}, mgrOpts...)
	defer mgr.Shutdown()

	server := httpapi.NewServer(mgr)
	addr := cfg.Host + ":" + cfg.Port
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logging.Infof("nfc bridge listening on %s (mock=%v)", addr, cfg.UseMockPN532)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Warnf("http server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Warnf("http server shutdown: %v", err)
	}
}

// openController builds the pn532.Device (or its mock equivalent) that
// session.Manager drives, wiring MAX_RETRIES into the teacher's
// TransportWithRetry wrapper.
func openController(cfg bridgeConfig) (*pn532.Device, error) {
	retryConfig := pn532.DefaultRetryConfig()
	retryConfig.MaxAttempts = cfg.MaxRetries

	opts := []pn532.Option{
		pn532.WithTimeout(cfg.ReadyTimeout),
		pn532.WithRetryConfig(retryConfig),
		pn532.WithDetectionStrategy(pn532.FullResponseStrategy{}),
	}

	if cfg.UseMockPN532 {
		transport := mock.New()
		device, err := pn532.New(transport, opts...)
		if err != nil {
			return nil, fmt.Errorf("create mock device: %w", err)
		}
		if err := device.Init(); err != nil {
			return nil, fmt.Errorf("init mock device: %w", err)
		}
		return device, nil
	}

	factory := func(busName string) (pn532.Transport, error) {
		transport, err := i2c.NewWithAddress(busName, uint16(cfg.I2CAddress))
		if err != nil {
			return nil, err
		}
		return pn532.NewTransportWithRetry(transport, retryConfig), nil
	}

	device, err := pn532.OpenI2C(factory, cfg.I2CBus, opts...)
	if err != nil {
		return nil, err
	}
	return device, nil
}

// runSelftest confirms the controller is alive and responsive without
// requiring a physical tag: GetFirmwareVersion then SAMConfiguration,
// grounded on cmd/nfctest's "-quick" smoke-test mode. This is meant for a
// container health check gating the HTTP server's readiness, so it
// intentionally stops short of a full InitAsTarget/WaitForTag cycle, which
// would block on a tagging timeout and require an initiator to be present.
func runSelftest(device *pn532.Device) {
	fw, err := device.GetFirmwareVersion()
	if err != nil {
		fmt.Fprintf(os.Stderr, "selftest: get firmware version failed: %v\n", err)
		os.Exit(1)
	}
	if err := device.SAMConfiguration(); err != nil {
		fmt.Fprintf(os.Stderr, "selftest: sam configuration failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("selftest: ok, firmware IC=0x%02X Ver=%d Rev=%d\n", fw.IC, fw.Ver, fw.Rev)
}
