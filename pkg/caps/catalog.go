package caps

import (
	"encoding/json"

	"github.com/thesyncim/libgodshow/pkg/format"
)

// CatalogDevice is the JSON form of a device for host UIs.
type CatalogDevice struct {
	ID   int                 `json:"id"`
	Name string              `json:"name"`
	Path string              `json:"path"`
	Caps []CatalogCapability `json:"caps"`
}

// CatalogCapability is the JSON form of a capability.
type CatalogCapability struct {
	ID            int                `json:"id"`
	MinCX         int                `json:"minCX"`
	MaxCX         int                `json:"maxCX"`
	GranularityCX int                `json:"granularityCX"`
	MinCY         int                `json:"minCY"`
	MaxCY         int                `json:"maxCY"`
	GranularityCY int                `json:"granularityCY"`
	MinInterval   int64              `json:"minInterval"`
	MaxInterval   int64              `json:"maxInterval"`
	Format        format.VideoFormat `json:"format"`
	FormatName    string             `json:"formatName"`
	Rating        int                `json:"rating"`
}

// NewCatalog converts devices into their catalog form, preserving order.
func NewCatalog(devices []Device) []CatalogDevice {
	out := make([]CatalogDevice, len(devices))
	for i, d := range devices {
		cd := CatalogDevice{
			ID:   i,
			Name: d.Name,
			Path: d.Path,
			Caps: make([]CatalogCapability, len(d.Caps)),
		}
		for j, c := range d.Caps {
			cd.Caps[j] = CatalogCapability{
				ID:            j,
				MinCX:         c.MinCX,
				MaxCX:         c.MaxCX,
				GranularityCX: c.GranularityCX,
				MinCY:         c.MinCY,
				MaxCY:         c.MaxCY,
				GranularityCY: c.GranularityCY,
				MinInterval:   c.MinInterval,
				MaxInterval:   c.MaxInterval,
				Format:        c.Format,
				FormatName:    c.Format.String(),
				Rating:        format.Rating(c.Format),
			}
		}
		out[i] = cd
	}
	return out
}

// MarshalCatalog returns the JSON catalog of devices: one array entry per
// device with its capabilities nested.
func MarshalCatalog(devices []Device) ([]byte, error) {
	return json.Marshal(NewCatalog(devices))
}
