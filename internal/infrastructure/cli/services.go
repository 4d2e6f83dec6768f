package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/prscore/internal/infrastructure/config"
	"github.com/felixgeelhaar/prscore/internal/infrastructure/wiring"
)

// servicesOptions lets tests swap the backend and clipboard.
var servicesOptions wiring.Options

func loadServices(root string, logOut io.Writer) (*wiring.AppServices, error) {
	opts := servicesOptions
	if logOut != nil {
		opts.LogWriter = logOut
	} else {
		opts.Console = true
	}
	opts.Override = applyFlagOverrides
	services, err := wiring.BuildAppServices(root, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build services: %w", err)
	}
	return services, nil
}

func applyFlagOverrides(cfg *config.Config) {
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
}

func getProjectRoot() (string, error) {
	if projectPath != "" {
		abs, err := filepath.Abs(projectPath)
		if err != nil {
			return "", fmt.Errorf("invalid project path %q: %w", projectPath, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("project path %q: %w", abs, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("project path %q is not a directory", abs)
		}
		return abs, nil
	}
	return os.Getwd()
}

func loadServicesForCurrentDir() (*wiring.AppServices, error) {
	root, err := getProjectRoot()
	if err != nil {
		return nil, err
	}
	return loadServices(root, nil)
}
