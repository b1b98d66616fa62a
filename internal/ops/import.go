package ops

import (
	"encoding/json"
	"fmt"
	"os"
)

// Import loads a previously exported report.
func Import(path string) (*Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read report %s: %w", path, err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("cannot parse report %s: %w", path, err)
	}
	if env.Progname != progname {
		return nil, fmt.Errorf("%s is not a %s report", path, progname)
	}
	if env.Result == nil {
		return nil, fmt.Errorf("report %s has no scan result", path)
	}
	return &env, nil
}
