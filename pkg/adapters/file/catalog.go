package file

import (
	"fmt"
	"os"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// LoadCatalog reads a YAML or JSON list of items, e.g.
//
//	- id: p1
//	  name: Margherita
//	  price: 9.5
//	  category: pizza
//	  image_url: https://example.com/p1.png
func LoadCatalog(path string) ([]domain.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	items := make([]domain.Item, 0, len(raw))
	for i, entry := range raw {
		var item domain.Item
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &item,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(entry); err != nil {
			return nil, fmt.Errorf("%s: item %d: %w", path, i, err)
		}
		if item.ID == "" || item.Name == "" {
			return nil, fmt.Errorf("%s: item %d: id and name are required", path, i)
		}
		items = append(items, item)
	}
	return items, nil
}
