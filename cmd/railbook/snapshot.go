package main

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"railbook/internal/capture"
	appLog "railbook/internal/log"
	"railbook/internal/offline"
)

func snapshotCmd() *cobra.Command {
	var (
		pageURL  string
		outPath  string
		execPath string
		width    int
		height   int
		timeout  time.Duration
		warm     bool
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Screenshot a running booking page with headless Chromium",
		Long: "Loads the page, waits until the deferred overview calendar has rendered " +
			"and writes a PNG. With --warm the offline cache is pre-filled from the same origin first.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if pageURL == "" {
				pageURL = "http://" + cfg.Listen + "/"
			}
			if warm {
				if err := warmCache(cmd, pageURL); err != nil {
					return err
				}
			}
			err := capture.Snapshot(cmd.Context(), capture.Options{
				URL:        pageURL,
				OutputPath: outPath,
				Width:      width,
				Height:     height,
				Timeout:    timeout,
				ExecPath:   execPath,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "snapshot written to", outPath)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&pageURL, "url", "", "Page to capture (default http://<listen>/)")
	f.StringVarP(&outPath, "out", "o", "preview.png", "Output PNG path")
	f.StringVar(&execPath, "chromium", "", "Chromium/Chrome binary (default: auto-detect)")
	f.IntVar(&width, "width", capture.DefaultWidth, "Viewport width in pixels")
	f.IntVar(&height, "height", capture.DefaultHeight, "Viewport height in pixels")
	f.DurationVar(&timeout, "timeout", capture.DefaultTimeout, "Capture timeout")
	f.BoolVar(&warm, "warm", false, "Precache the page assets in the offline cache first")
	return cmd
}

// warmCache precaches the configured paths from pageURL's origin and drops
// cache generations of other versions.
func warmCache(cmd *cobra.Command, pageURL string) error {
	u, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("invalid --url: %w", err)
	}
	origin := u.Scheme + "://" + u.Host

	cache, err := offline.New(cfg.Offline.Dir, cfg.Offline.Version, origin)
	if err != nil {
		return err
	}
	if _, err := cache.Activate(); err != nil {
		appLog.Error("offline cache cleanup failed", err)
	}
	errs := cache.Precache(cmd.Context(), cfg.Offline.Precache)
	for _, e := range errs {
		appLog.Error("precache failed", e)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "precached %d/%d paths into %s\n",
		len(cfg.Offline.Precache)-len(errs), len(cfg.Offline.Precache), cache.Version())
	return nil
}
