package dispatch

import (
	"context"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/interpolate"
)

const defaultRecordPrefix = "record"

// RecordConfig is the config of a create_record action.
type RecordConfig struct {
	// Kind names the business record (appointment, order, lead...).
	Kind string `mapstructure:"kind"`
	// Fields are templates rendered against the variables.
	Fields map[string]any `mapstructure:"fields"`
	// Prefix names the result variables: <prefix>_id, <prefix>_created, <prefix>_error.
	Prefix string `mapstructure:"prefix"`
}

func (d *Dispatcher) createRecord(ctx context.Context, config, vars map[string]any) (map[string]any, error) {
	var cfg RecordConfig
	if err := decode(config, &cfg); err != nil {
		return marker(defaultRecordPrefix, err.Error()), nil
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultRecordPrefix
	}
	if cfg.Kind == "" {
		return marker(prefix, "create_record requires a kind"), nil
	}
	if d.records == nil {
		return marker(prefix, "no record creator configured"), nil
	}

	id, err := d.records.CreateRecord(ctx, cfg.Kind, interpolate.Map(cfg.Fields, vars))
	if err != nil {
		d.logger.Warn("create_record failed", "kind", cfg.Kind, "err", err)
		return marker(prefix, err.Error()), nil
	}
	return map[string]any{
		prefix + "_id":      id,
		prefix + "_created": true,
	}, nil
}

func marker(prefix, msg string) map[string]any {
	return map[string]any{prefix + "_error": msg}
}

// errorMarker reports a failure under the generic action error variable.
func errorMarker(msg string) map[string]any {
	return map[string]any{domain.VarActionError: msg}
}
