package report

import (
	"encoding/json"
	"io"

	"github.com/deepaksuthar40128/RemoteDx/pkg/diag"
	"github.com/deepaksuthar40128/RemoteDx/pkg/machine"
)

type machineJSON struct {
	Name             string        `json:"name"`
	Address          string        `json:"ip_address"`
	Variant          string        `json:"machine_type"`
	ExpectedSoftware []string      `json:"expected_software"`
	Results          []diag.Record `json:"results"`
}

// WriteJSON writes the machines and their latest results as indented JSON.
func WriteJSON(w io.Writer, machines []*machine.Profile) error {
	out := make([]machineJSON, 0, len(machines))
	for _, m := range machines {
		out = append(out, machineJSON{
			Name:             m.Name(),
			Address:          m.Address(),
			Variant:          m.Variant().String(),
			ExpectedSoftware: m.ExpectedSoftware(),
			Results:          m.Results(),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
