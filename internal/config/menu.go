package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ivr-gateway/internal/ivr"
)

// LoadMenu returns the default menu overlaid with the YAML file at path.
// Keys absent from the file keep their defaults; an options block replaces
// the whole digit table.
//
// Example:
//
//	greeting: "Press 1 for voicemail, 2 for sales."
//	voice: Polly.Joanna
//	options:
//	  "1": voicemail
//	  "2": liveTransfer
func LoadMenu(path, forwardingNumber string) (ivr.Menu, error) {
	menu := ivr.DefaultMenu(forwardingNumber)
	if path == "" {
		return menu, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return ivr.Menu{}, fmt.Errorf("IVR_MENU_PATH: %w", err)
	}

	defaults := menu.Options
	menu.Options = nil
	if err := yaml.Unmarshal(raw, &menu); err != nil {
		return ivr.Menu{}, fmt.Errorf("IVR_MENU_PATH: parse %s: %w", path, err)
	}
	if menu.Options == nil {
		menu.Options = defaults
	}
	menu.ForwardingNumber = forwardingNumber
	return menu, nil
}
